package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Shivanand-hulikatti/theater-seat-server/internal/model"
)

func TestUserService_Register(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, created, err := f.users.Register(ctx, model.RegisterUserRequest{Email: " Ann@Example.com ", Name: "Ann"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !created || u.Email != ann || u.Role != model.RoleAttendee {
		t.Errorf("first Register = %+v created=%v", u, created)
	}

	again, created, err := f.users.Register(ctx, model.RegisterUserRequest{Email: ann, Name: "Someone else"})
	if err != nil {
		t.Fatalf("second Register: %v", err)
	}
	if created || again.ID != u.ID || again.Name != "Ann" {
		t.Errorf("second Register = %+v created=%v", again, created)
	}

	users, err := f.users.List(ctx)
	if err != nil || len(users) != 1 {
		t.Fatalf("List = %v, %v", users, err)
	}
}

// racyUsers reports the email as absent on the first lookup, as if another
// request inserted it between the lookup and the insert.
type racyUsers struct {
	memUsers
	lookups int
}

func (r *racyUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, model.ErrUserNotFound
	}
	return r.memUsers.GetByEmail(ctx, email)
}

func TestUserService_RegisterRace(t *testing.T) {
	store := newMemStore()
	existing := &model.User{ID: model.NewObjectID(epoch), Email: ann, Role: model.RoleAttendee}
	if err := (memUsers{store}).Create(context.Background(), existing); err != nil {
		t.Fatal(err)
	}
	svc := NewUserService(&racyUsers{memUsers: memUsers{store}}, fakeIssuer{}, newTestClock(), Retrier{})

	u, created, err := svc.Register(context.Background(), model.RegisterUserRequest{Email: ann})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if created || u.ID != existing.ID {
		t.Errorf("Register = %+v created=%v, want existing user", u, created)
	}
}

func TestUserService_RegisterValidation(t *testing.T) {
	f := newFixture()
	for _, req := range []model.RegisterUserRequest{
		{},
		{Email: "not-an-email"},
	} {
		if _, _, err := f.users.Register(context.Background(), req); !model.IsValidation(err) {
			t.Errorf("Register(%+v) err = %v, want validation error", req, err)
		}
	}
}

func TestUserService_IssueToken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, _, err := f.users.Register(ctx, model.RegisterUserRequest{Email: ann}); err != nil {
		t.Fatal(err)
	}

	tok, err := f.users.IssueToken(ctx, "ANN@example.com")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if tok.Token != "token-for-"+ann {
		t.Errorf("token = %q", tok.Token)
	}

	if _, err := f.users.IssueToken(ctx, "ghost@example.com"); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("unknown email: err = %v, want ErrUserNotFound", err)
	}
	if _, err := f.users.IssueToken(ctx, ""); !model.IsValidation(err) {
		t.Errorf("empty email: err = %v, want validation error", err)
	}
}

func TestUserService_RegisterIsAlwaysAttendee(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	u, _, err := f.users.Register(ctx, model.RegisterUserRequest{Email: "mallory@example.com"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	role, err := f.users.RoleOf(ctx, u.Email)
	if err != nil || role != model.RoleAttendee || role.CanOrganize() {
		t.Fatalf("RoleOf = %q, %v; self-registered users must be attendees", role, err)
	}
}

func TestUserService_Grant(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	u, err := f.users.Grant(ctx, model.GrantRoleRequest{Email: "New@Example.com", Role: model.RoleOrganizer})
	if err != nil {
		t.Fatalf("Grant new user: %v", err)
	}
	if u.Email != "new@example.com" || u.Role != model.RoleOrganizer {
		t.Errorf("Grant = %+v", u)
	}

	if _, _, err := f.users.Register(ctx, model.RegisterUserRequest{Email: ann}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.users.Grant(ctx, model.GrantRoleRequest{Email: ann, Role: model.RoleAdmin}); err != nil {
		t.Fatalf("Grant existing user: %v", err)
	}
	if role, _ := f.users.RoleOf(ctx, ann); role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", role)
	}

	for _, req := range []model.GrantRoleRequest{
		{Email: ann},
		{Email: ann, Role: "superuser"},
		{Email: "not-an-email", Role: model.RoleAdmin},
	} {
		if _, err := f.users.Grant(ctx, req); !model.IsValidation(err) {
			t.Errorf("Grant(%+v) err = %v, want validation error", req, err)
		}
	}
}

func TestUserService_RoleOf(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.users.Grant(ctx, model.GrantRoleRequest{Email: "org@example.com", Role: model.RoleOrganizer}); err != nil {
		t.Fatal(err)
	}
	role, err := f.users.RoleOf(ctx, "Org@Example.com")
	if err != nil || role != model.RoleOrganizer {
		t.Fatalf("RoleOf = %q, %v", role, err)
	}
	if _, err := f.users.RoleOf(ctx, "ghost@example.com"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("RoleOf unknown: err = %v", err)
	}
}
