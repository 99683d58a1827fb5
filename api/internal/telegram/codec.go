package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"slip-bot/api/internal/engine"
	"slip-bot/api/internal/slip"
)

// maxCallbackData is Telegram's limit for inline button payloads.
const maxCallbackData = 64

var ErrBadCallback = errors.New("telegram: malformed callback data")

var kindCodes = map[engine.Kind]string{
	engine.KindEdit:         "e",
	engine.KindEditPick:     "ep",
	engine.KindEditField:    "ef",
	engine.KindRemove:       "rm",
	engine.KindPage:         "pg",
	engine.KindConfirm:      "ok",
	engine.KindForceConfirm: "fok",
	engine.KindCancel:       "x",
	engine.KindBack:         "bk",
}

var codeKinds = func() map[string]engine.Kind {
	m := make(map[string]engine.Kind, len(kindCodes))
	for k, c := range kindCodes {
		m[c] = k
	}
	return m
}()

// EncodeAction packs a into colon-separated callback data:
//
//	<code>:<token>[:<rev>:<index>[:<field>]]  or  pg:<token>:<page>
func EncodeAction(a engine.Action) (string, error) {
	code, ok := kindCodes[a.Kind]
	if !ok {
		return "", fmt.Errorf("telegram: unknown action kind %q", a.Kind)
	}
	if a.Token == "" || strings.Contains(a.Token, ":") {
		return "", fmt.Errorf("telegram: bad token %q", a.Token)
	}
	parts := []string{code, a.Token}
	switch a.Kind {
	case engine.KindEditPick, engine.KindRemove:
		parts = append(parts, strconv.Itoa(a.Rev), strconv.Itoa(a.Index))
	case engine.KindEditField:
		parts = append(parts, strconv.Itoa(a.Rev), strconv.Itoa(a.Index), string(a.Field))
	case engine.KindPage:
		parts = append(parts, strconv.Itoa(a.Page))
	}
	s := strings.Join(parts, ":")
	if len(s) > maxCallbackData {
		return "", fmt.Errorf("telegram: callback data too long (%d bytes)", len(s))
	}
	return s, nil
}

// DecodeAction is the inverse of EncodeAction.
func DecodeAction(s string) (engine.Action, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || parts[1] == "" {
		return engine.Action{}, fmt.Errorf("%w: %q", ErrBadCallback, s)
	}
	kind, ok := codeKinds[parts[0]]
	if !ok {
		return engine.Action{}, fmt.Errorf("%w: unknown code in %q", ErrBadCallback, s)
	}
	a := engine.Action{Kind: kind, Token: parts[1]}
	args := parts[2:]

	want := 0
	switch kind {
	case engine.KindEditPick, engine.KindRemove:
		want = 2
	case engine.KindEditField:
		want = 3
	case engine.KindPage:
		want = 1
	}
	if len(args) != want {
		return engine.Action{}, fmt.Errorf("%w: %q wants %d args", ErrBadCallback, s, want)
	}

	ints := func(ss ...string) ([]int, error) {
		out := make([]int, len(ss))
		for i, v := range ss {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrBadCallback, s)
			}
			out[i] = n
		}
		return out, nil
	}

	switch kind {
	case engine.KindEditPick, engine.KindRemove, engine.KindEditField:
		n, err := ints(args[0], args[1])
		if err != nil {
			return engine.Action{}, err
		}
		a.Rev, a.Index = n[0], n[1]
		if kind == engine.KindEditField {
			a.Field = slip.Field(args[2])
			if !a.Field.Valid() {
				return engine.Action{}, fmt.Errorf("%w: unknown field in %q", ErrBadCallback, s)
			}
		}
	case engine.KindPage:
		n, err := ints(args[0])
		if err != nil {
			return engine.Action{}, err
		}
		a.Page = n[0]
	}
	return a, nil
}
