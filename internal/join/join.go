// Package join redeems a list share link for the signed-in user.
package join

import (
	"context"
	"errors"

	"github.com/dukerupert/tandem/internal/client"
	"github.com/dukerupert/tandem/internal/model"
)

const invalidLink = "Invalid or expired share link"

type State string

const (
	Loading       State = "loading"
	Joining       State = "joining"
	AlreadyMember State = "already_member"
	Success       State = "success"
	Failed        State = "error"
)

// Terminal reports whether the flow stops in s.
func (s State) Terminal() bool {
	switch s {
	case AlreadyMember, Success, Failed:
		return true
	}
	return false
}

// API is the part of the client a join needs.
type API interface {
	ListByShareToken(ctx context.Context, token string) (*model.ListRef, error)
	Membership(ctx context.Context, listID, userID string) (*model.ListMember, error)
	Join(ctx context.Context, listID string, role model.Role, shareToken string) (*model.ListMember, error)
}

// Result is where a run ended. ListID and ListName are set once the token
// has resolved; Message is set for Failed.
type Result struct {
	State    State
	ListID   string
	ListName string
	Message  string
}

// Flow joins one share link. It walks loading, then joining, to a terminal
// state and never retries.
type Flow struct {
	Client API
	UserID string
	// Observe, when set, is called on every state the flow enters.
	Observe func(State)
}

func (f Flow) enter(s State) {
	if f.Observe != nil {
		f.Observe(s)
	}
}

func (f Flow) Run(ctx context.Context, token string) Result {
	f.enter(Loading)

	ref, err := f.Client.ListByShareToken(ctx, token)
	if err != nil || ref == nil {
		f.enter(Failed)
		return Result{State: Failed, Message: invalidLink}
	}
	res := Result{ListID: ref.ID, ListName: ref.Name}

	// A failed membership lookup is treated as "not a member"; the join
	// itself reports any real problem.
	if m, err := f.Client.Membership(ctx, ref.ID, f.UserID); err == nil && m != nil {
		res.State = AlreadyMember
		f.enter(AlreadyMember)
		return res
	}

	f.enter(Joining)
	if _, err := f.Client.Join(ctx, ref.ID, model.RoleEditor, token); err != nil {
		res.State = Failed
		res.Message = message(err)
		f.enter(Failed)
		return res
	}

	res.State = Success
	f.enter(Success)
	return res
}

func message(err error) string {
	var e *client.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
