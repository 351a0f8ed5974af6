package auth

import (
	"context"
	"testing"
	"time"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/backend"
)

// mockChecker implements SessionChecker for testing.
type mockChecker struct {
	checkFn func(ctx context.Context, token string) (*backend.SessionCheck, error)
	calls   int
}

func (m *mockChecker) CheckSession(ctx context.Context, token string) (*backend.SessionCheck, error) {
	m.calls++
	if m.checkFn != nil {
		return m.checkFn(ctx, token)
	}
	return &backend.SessionCheck{}, nil
}

func TestValidate_ValidPassesUserThrough(t *testing.T) {
	checker := &mockChecker{checkFn: func(_ context.Context, token string) (*backend.SessionCheck, error) {
		if token != "T" {
			t.Errorf("expected token T, got %q", token)
		}
		return &backend.SessionCheck{User: &backend.User{ID: "u1"}}, nil
	}}
	v := NewSessionValidator(checker, 0)

	remote, user := v.Validate(context.Background(), "T")
	if remote != RemoteValid {
		t.Fatalf("expected valid, got %v", remote)
	}
	if user == nil || user.ID != "u1" {
		t.Errorf("expected user u1, got %+v", user)
	}
}

func TestValidate_AnyFailureIsInvalid(t *testing.T) {
	for name, err := range map[string]error{
		"rejected":  apperror.NewRejected("session expired"),
		"upstream":  apperror.NewUpstream(context.DeadlineExceeded),
		"malformed": apperror.NewMalformed(nil),
	} {
		t.Run(name, func(t *testing.T) {
			checker := &mockChecker{checkFn: func(context.Context, string) (*backend.SessionCheck, error) {
				return nil, err
			}}
			v := NewSessionValidator(checker, 0)

			if remote, user := v.Validate(context.Background(), "T"); remote != RemoteInvalid || user != nil {
				t.Errorf("expected invalid with no user, got %v %+v", remote, user)
			}
		})
	}
}

func TestValidate_NoCacheCallsEveryTime(t *testing.T) {
	checker := &mockChecker{}
	v := NewSessionValidator(checker, 0)

	v.Validate(context.Background(), "T")
	v.Validate(context.Background(), "T")

	if checker.calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", checker.calls)
	}
}

func TestValidate_CachesOnlySuccess(t *testing.T) {
	fail := true
	checker := &mockChecker{checkFn: func(context.Context, string) (*backend.SessionCheck, error) {
		if fail {
			return nil, apperror.NewRejected("nope")
		}
		return &backend.SessionCheck{}, nil
	}}
	v := NewSessionValidator(checker, time.Minute)
	defer v.Close()
	ctx := context.Background()

	if remote, _ := v.Validate(ctx, "T"); remote != RemoteInvalid {
		t.Fatalf("expected invalid, got %v", remote)
	}

	fail = false
	if remote, _ := v.Validate(ctx, "T"); remote != RemoteValid {
		t.Fatalf("expected valid after failure was not cached, got %v", remote)
	}

	fail = true
	if remote, _ := v.Validate(ctx, "T"); remote != RemoteValid {
		t.Errorf("expected cached valid result, got %v", remote)
	}
	if checker.calls != 2 {
		t.Errorf("expected 2 backend calls, got %d", checker.calls)
	}

	v.Forget("T")
	if remote, _ := v.Validate(ctx, "T"); remote != RemoteInvalid {
		t.Errorf("expected forgotten token to be checked again, got %v", remote)
	}
}
