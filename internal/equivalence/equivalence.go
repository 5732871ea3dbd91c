// Package equivalence implements "practical equality" between two messages
// that may live under different dataset roots and different user-id
// spaces — the comparison the Merger uses to decide whether a pair of
// messages represents the same utterance.
package equivalence

import (
	"github.com/chathive/chathive/internal/model"
)

// Context carries the per-side information Equivalent needs beyond the
// message itself: how to resolve a local user id to the logical user the
// comparison is made under. Messages are expected to come from Store reads,
// where PathRef.State has already been resolved against the owning
// dataset's root — Equivalent trusts that resolution rather than touching
// the filesystem itself.
type Context struct {
	ResolveUser func(userID int64) int64
}

func (c Context) resolve(userID int64) int64 {
	if c.ResolveUser == nil {
		return userID
	}
	return c.ResolveUser(userID)
}

// Equivalent reports whether a and b represent the same utterance: matching
// body variant, the same logical author under the user-mapping in force,
// equal timestamps (edit-timestamp is ignored), style-normalized rich text
// equality, and content metadata equality under the missing-media rule. It
// is symmetric and reflexive but not transitive.
func Equivalent(a model.Message, actx Context, b model.Message, bctx Context) bool {
	if a.Body.Kind != b.Body.Kind {
		return false
	}
	if actx.resolve(a.FromUserID) != bctx.resolve(b.FromUserID) {
		return false
	}
	if a.Timestamp != b.Timestamp {
		return false
	}

	switch a.Body.Kind {
	case model.BodyService:
		return serviceBodiesEquivalent(a.Body, b.Body)
	default:
		return regularBodiesEquivalent(a.Body, b.Body)
	}
}

func regularBodiesEquivalent(a, b model.Body) bool {
	if !richTextEquivalent(a.Text, b.Text) {
		return false
	}
	return contentEquivalent(a.Content, b.Content)
}

func serviceBodiesEquivalent(a, b model.Body) bool {
	if a.Subtype != b.Subtype {
		return false
	}
	// group-edit-photo and suggest-profile-photo are the subtypes that
	// carry a Photo; the missing-media rule applies to it exactly as it
	// does to any other path-bearing field, and is a no-op (both nil)
	// for every other subtype.
	if !photoRefEquivalent(a.Photo, b.Photo) {
		return false
	}
	if a.NewTitle != b.NewTitle {
		return false
	}
	if a.DurationSec != b.DurationSec {
		return false
	}
	return stringSlicesEqual(a.MemberNames, b.MemberNames)
}

func richTextEquivalent(a, b model.RichText) bool {
	na, nb := a.NormalizedForEquivalence(), b.NormalizedForEquivalence()
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// contentEquivalent implements the missing-media rule: for a media-bearing
// kind, once either side's primary file fails to resolve, the content is
// taken as equivalent without comparing anything else about it — a message
// whose media did not survive transcoding, download, or export is still the
// same message. Only when both sides resolve a file is the rest of the
// content metadata compared, and any mismatch there is fatal. Location,
// poll, and shared-contact content has no primary file, so its metadata is
// always compared.
func contentEquivalent(a, b *model.Content) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case model.ContentLocation, model.ContentPoll, model.ContentSharedContact:
	default:
		if !a.Path.Resolved() || !b.Path.Resolved() {
			return true
		}
	}
	if a.Path.Path != b.Path.Path {
		return false
	}

	if !photoRefEquivalent(&a.ThumbnailPath, &b.ThumbnailPath) {
		return false
	}
	if !photoRefEquivalent(&a.ContactVCardPath, &b.ContactVCardPath) {
		return false
	}

	if a.Width != b.Width || a.Height != b.Height {
		return false
	}
	if a.MimeType != b.MimeType {
		return false
	}
	if a.DurationSec != b.DurationSec {
		return false
	}
	if a.FileName != b.FileName {
		return false
	}
	if a.Title != b.Title || a.Performer != b.Performer {
		return false
	}
	if a.Lat != b.Lat || a.Lon != b.Lon {
		return false
	}
	if a.PollQuestion != b.PollQuestion {
		return false
	}
	if !stringSlicesEqual(a.PollAnswers, b.PollAnswers) {
		return false
	}
	if a.ContactFirstName != b.ContactFirstName || a.ContactLastName != b.ContactLastName || a.ContactPhone != b.ContactPhone {
		return false
	}
	return true
}

// photoRefEquivalent applies the missing-media rule to a single
// path-bearing field: only a file that resolves on both sides is compared
// by path; if either side fails to resolve, the two are equivalent
// regardless of what path text (if any) each side recorded.
func photoRefEquivalent(a, b *model.PathRef) bool {
	aResolved := a != nil && a.Resolved()
	bResolved := b != nil && b.Resolved()
	if !aResolved || !bResolved {
		return true
	}
	return a.Path == b.Path
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
