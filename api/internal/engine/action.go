package engine

import "slip-bot/api/internal/slip"

// Kind tags an Action.
type Kind string

const (
	KindEdit         Kind = "edit"
	KindEditPick     Kind = "edit_pick"
	KindEditField    Kind = "edit_field"
	KindRemove       Kind = "remove"
	KindPage         Kind = "page"
	KindConfirm      Kind = "confirm"
	KindForceConfirm Kind = "force_confirm"
	KindCancel       Kind = "cancel"
	KindBack         Kind = "back"
)

// Action is a user selection on a rendered batch. Which of Rev, Index, Field
// and Page are meaningful depends on Kind.
type Action struct {
	Kind  Kind
	Token string
	Rev   int
	Index int
	Field slip.Field
	Page  int
}

func Edit(token string) Action { return Action{Kind: KindEdit, Token: token} }

func EditPick(token string, rev, index int) Action {
	return Action{Kind: KindEditPick, Token: token, Rev: rev, Index: index}
}

func EditField(token string, rev, index int, f slip.Field) Action {
	return Action{Kind: KindEditField, Token: token, Rev: rev, Index: index, Field: f}
}

func Remove(token string, rev, index int) Action {
	return Action{Kind: KindRemove, Token: token, Rev: rev, Index: index}
}

func Page(token string, page int) Action { return Action{Kind: KindPage, Token: token, Page: page} }

func Confirm(token string) Action      { return Action{Kind: KindConfirm, Token: token} }
func ForceConfirm(token string) Action { return Action{Kind: KindForceConfirm, Token: token} }
func Cancel(token string) Action       { return Action{Kind: KindCancel, Token: token} }
func Back(token string) Action         { return Action{Kind: KindBack, Token: token} }
