package store

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/chathive/chathive/internal/model"
)

func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func stringOrEmpty(ns sql.NullString) string {
	if !ns.Valid {
		return ""
	}
	return ns.String
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64PtrOrNil(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

// pathToDB converts a PathRef to the nullable text column it is stored as.
// Absent becomes NULL; present or not-found both persist the path text
// verbatim, since the not-found state is recovered by checking the file
// against the dataset root at read time (pathFromDB).
func pathToDB(p model.PathRef) sql.NullString {
	if !p.Set() {
		return sql.NullString{}
	}
	return sql.NullString{String: p.Path, Valid: true}
}

// pathFromDB reconstructs a PathRef by resolving the stored relative path
// against root. This is how the Absent/Present/NotFound tri-state 
// survives without a redundant state column: Absent is NULL, and
// Present-vs-NotFound is simply whether the file exists under root right now.
func pathFromDB(root string, ns sql.NullString) model.PathRef {
	if !ns.Valid {
		return model.PathRef{State: model.PathAbsent}
	}
	if _, err := os.Stat(filepath.Join(root, ns.String)); err == nil {
		return model.PathRef{State: model.PathPresent, Path: ns.String}
	}
	return model.PathRef{State: model.PathNotFound, Path: ns.String}
}
