// Package textimport is the reference implementation of loader.Port for
// the "text-import" source type: a minimal line-oriented transcript format
// used to exercise the Store and Merger without a real exporter on hand.
//
// Format: one message per non-blank line, "HH:MM <name>: text". An
// optional first line "@me <name>" names the participant whose messages
// are IsMyself; without it, the first speaker encountered is assumed to be
// myself. Lines are otherwise free text; an unparseable line produces a
// parse warning and is skipped rather than failing the whole load.
package textimport

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/chathive/chathive/internal/loader"
	"github.com/chathive/chathive/internal/model"
)

var lineRE = regexp.MustCompile(`^(\d{2}):(\d{2})\s+([^:]+):\s?(.*)$`)
var meRE = regexp.MustCompile(`^@me\s+(.+)$`)

const chatID = 1

// Loader implements loader.Port for the text-import format.
type Loader struct{}

var _ loader.Port = Loader{}

// Load reads path as a text-import transcript.
func (Loader) Load(path string) (loader.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return loader.Result{}, &loader.ErrFileNotFound{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	ds := model.Dataset{UUID: model.NewDatasetUUID(), Alias: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}

	nameToID := map[string]int64{}
	var order []string
	myselfName := ""

	var messages []model.Message
	var warnings []string

	scanner := bufio.NewScanner(f)
	lineNo := 0
	baseDay := int64(0)
	prevMinutes := -1

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if m := meRE.FindStringSubmatch(line); m != nil {
			myselfName = strings.TrimSpace(m[1])
			continue
		}

		m := lineRE.FindStringSubmatch(line)
		if m == nil {
			warnings = append(warnings, fmt.Sprintf("line %d: does not match \"HH:MM name: text\"", lineNo))
			continue
		}

		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		if hh > 23 || mm > 59 {
			warnings = append(warnings, fmt.Sprintf("line %d: invalid time %s:%s", lineNo, m[1], m[2]))
			continue
		}
		minutes := hh*60 + mm
		if minutes < prevMinutes {
			baseDay++
		}
		prevMinutes = minutes
		ts := baseDay*86400 + int64(hh)*3600 + int64(mm)*60

		name := strings.TrimSpace(m[3])
		text := m[4]

		if _, ok := nameToID[name]; !ok {
			nameToID[name] = int64(len(order) + 1)
			order = append(order, name)
			if myselfName == "" {
				myselfName = name
			}
		}

		sourceID := int64(lineNo)
		messages = append(messages, model.Message{
			DatasetUUID: ds.UUID,
			ChatID:      chatID,
			SourceID:    &sourceID,
			FromUserID:  nameToID[name],
			Timestamp:   ts,
			Body: model.Body{
				Kind: model.BodyRegular,
				Text: model.RichText{{Kind: model.ElementPlain, Text: text}},
			},
		})
	}
	if err := scanner.Err(); err != nil {
		return loader.Result{}, &loader.FormatError{Offset: int64(lineNo), Err: err}
	}

	if len(order) == 0 {
		return loader.Result{}, &loader.FormatError{Err: fmt.Errorf("no parseable messages in %s", path)}
	}

	users := make([]model.User, 0, len(order))
	members := make([]model.ChatMember, 0, len(order))
	for i, name := range order {
		id := nameToID[name]
		users = append(users, model.User{
			DatasetUUID: ds.UUID,
			ID:          id,
			FirstName:   name,
			IsMyself:    name == myselfName,
		})
		members = append(members, model.ChatMember{DatasetUUID: ds.UUID, ChatID: chatID, UserID: id, Order: i})
	}

	chatType := model.ChatPersonal
	if len(order) > 2 {
		chatType = model.ChatPrivateGroup
	}

	chat := model.Chat{
		DatasetUUID: ds.UUID,
		ID:          chatID,
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		SourceType:  model.SourceTextImport,
		Type:        chatType,
		MsgCount:    int64(len(messages)),
	}

	result := loader.Result{
		Dataset:  ds,
		Users:    users,
		Chats:    []model.Chat{chat},
		Members:  map[int64][]model.ChatMember{chatID: members},
		Messages: map[int64][]model.Message{chatID: messages},
	}

	if len(warnings) > 0 {
		return result, &loader.PartialParseError{Warnings: warnings}
	}
	return result, nil
}
