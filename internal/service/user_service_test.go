package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"usersvc/api/internal/config"
	"usersvc/api/internal/models"
	"usersvc/api/internal/repository"
	"usersvc/api/internal/security"
)

type fakeMailer struct {
	to      string
	subject string
	text    string
	err     error
}

func (f *fakeMailer) Send(_ context.Context, to string, subject string, text string, _ string) error {
	f.to = to
	f.subject = subject
	f.text = text
	return f.err
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:  "test-secret",
			SessionTTL: time.Hour,
			ResetTTL:   time.Hour,
		},
	}
}

func newTestService(mailer *fakeMailer) *UserService {
	if mailer == nil {
		mailer = &fakeMailer{}
	}
	return NewUserService(repository.NewMemoryUserRepository(), mailer, testConfig(), zerolog.Nop())
}

func register(t *testing.T, svc *UserService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Name:         "Jan Novak",
		Email:        email,
		Password:     "password123",
		Organisation: "Test Org",
	})
	if err != nil {
		t.Fatalf("Register(%s) error: %v", email, err)
	}
	return user
}

func idLess(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func TestRegisterHashesPassword(t *testing.T) {
	svc := newTestService(nil)

	user := register(t, svc, "jan@example.com")

	if user.Password == "password123" {
		t.Fatal("password stored in plaintext")
	}
	if !security.VerifyPassword("password123", user.Password) {
		t.Fatal("stored hash does not verify against the original password")
	}
	if user.Role != models.RoleBasic {
		t.Fatalf("role = %s, want BASIC", user.Role)
	}
	if len(user.Billings) != 0 {
		t.Fatalf("unexpected billing records: %v", user.Billings)
	}
}

func TestRegisterInstitutionalBilling(t *testing.T) {
	svc := newTestService(nil)

	user := register(t, svc, "jan@flaw.uniba.sk")

	if len(user.Billings) != 1 {
		t.Fatalf("expected one billing record, got %d", len(user.Billings))
	}
	if user.Billings[0].ICO != "00397865" {
		t.Fatalf("billing ICO = %q", user.Billings[0].ICO)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestService(nil)

	register(t, svc, "jan@example.com")

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:         "Second Jan",
		Email:        "jan@example.com",
		Password:     "password456",
		Organisation: "Other Org",
	})
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterEmailCaseSensitive(t *testing.T) {
	svc := newTestService(nil)

	register(t, svc, "jan@example.com")

	// Emails compare exactly as stored; a different casing is a
	// different address.
	if _, err := svc.Register(context.Background(), RegisterInput{
		Name:         "Jan Upper",
		Email:        "Jan@example.com",
		Password:     "password456",
		Organisation: "Org",
	}); err != nil {
		t.Fatalf("expected differently-cased email to register, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService(nil)
	registered := register(t, svc, "jan@example.com")

	user, err := svc.Login(context.Background(), "jan@example.com", "password123")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user.ID != registered.ID {
		t.Fatalf("logged in as %s, want %s", user.ID.Hex(), registered.ID.Hex())
	}

	if _, err := svc.Login(context.Background(), "jan@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
}

func TestIssueSessionRoundTrip(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")

	token, err := svc.IssueSession(user)
	if err != nil {
		t.Fatalf("IssueSession error: %v", err)
	}

	claims := security.VerifySession(token, "test-secret")
	if claims == nil {
		t.Fatal("issued session token does not verify")
	}
	if claims.UserID != user.ID.Hex() || claims.Email != user.Email {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func seedUsers(t *testing.T, svc *UserService, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		register(t, svc, "user"+string(rune('a'+i))+"@example.com")
	}
}

func TestListNoCursor(t *testing.T) {
	svc := newTestService(nil)
	seedUsers(t, svc, 3)

	conn, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	if len(conn.Edges) != 3 {
		t.Fatalf("expected 3 edges, got %d", len(conn.Edges))
	}
	for i := 1; i < len(conn.Edges); i++ {
		if !idLess(conn.Edges[i].Cursor, conn.Edges[i-1].Cursor) {
			t.Fatal("edges not in descending identifier order")
		}
	}
	if conn.PageInfo.HasPreviousPage || conn.PageInfo.HasNextPage {
		t.Fatalf("unexpected page flags: %+v", conn.PageInfo)
	}
}

func TestListLimit(t *testing.T) {
	svc := newTestService(nil)
	seedUsers(t, svc, 5)

	conn, err := svc.List(context.Background(), ListInput{First: 2})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	if len(conn.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(conn.Edges))
	}
	if conn.PageInfo.HasPreviousPage {
		t.Fatal("first page must not report a previous page")
	}
	if !conn.PageInfo.HasNextPage {
		t.Fatal("expected hasNextPage true with older records remaining")
	}
}

func TestListAfterCursor(t *testing.T) {
	svc := newTestService(nil)
	seedUsers(t, svc, 3)

	first, err := svc.List(context.Background(), ListInput{First: 1})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	newest := first.Edges[0].Cursor

	next, err := svc.List(context.Background(), ListInput{After: newest.Hex()})
	if err != nil {
		t.Fatalf("List after error: %v", err)
	}

	if len(next.Edges) != 2 {
		t.Fatalf("expected 2 edges after newest, got %d", len(next.Edges))
	}
	for _, edge := range next.Edges {
		if !idLess(edge.Cursor, newest) {
			t.Fatalf("edge %s not strictly older than after cursor", edge.Cursor.Hex())
		}
	}
	if !next.PageInfo.HasPreviousPage {
		t.Fatal("expected hasPreviousPage true behind an after cursor")
	}
	if next.PageInfo.HasNextPage {
		t.Fatal("expected hasNextPage false on the final page")
	}
}

func TestListBeforeCursor(t *testing.T) {
	svc := newTestService(nil)
	seedUsers(t, svc, 3)

	all, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	oldest := all.Edges[len(all.Edges)-1].Cursor

	prev, err := svc.List(context.Background(), ListInput{Before: oldest.Hex()})
	if err != nil {
		t.Fatalf("List before error: %v", err)
	}

	if len(prev.Edges) != 2 {
		t.Fatalf("expected 2 edges before oldest, got %d", len(prev.Edges))
	}
	for _, edge := range prev.Edges {
		if !idLess(oldest, edge.Cursor) {
			t.Fatalf("edge %s not strictly newer than before cursor", edge.Cursor.Hex())
		}
	}
	if !prev.PageInfo.HasNextPage {
		t.Fatal("expected hasNextPage true ahead of a before cursor")
	}
}

func TestListEmptyCollection(t *testing.T) {
	svc := newTestService(nil)

	conn, err := svc.List(context.Background(), ListInput{})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	if len(conn.Edges) != 0 {
		t.Fatalf("expected no edges, got %d", len(conn.Edges))
	}
	if conn.PageInfo.HasPreviousPage || conn.PageInfo.HasNextPage {
		t.Fatal("expected both page flags false on empty collection")
	}
	if conn.PageInfo.StartCursor != nil || conn.PageInfo.EndCursor != nil {
		t.Fatal("expected nil cursors on empty collection")
	}
}

func TestListUnknownCursor(t *testing.T) {
	svc := newTestService(nil)
	seedUsers(t, svc, 2)

	if _, err := svc.List(context.Background(), ListInput{After: primitive.NewObjectID().Hex()}); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("unknown cursor err = %v, want ErrInvalidCursor", err)
	}
	if _, err := svc.List(context.Background(), ListInput{After: "zz-not-hex"}); !errors.Is(err, ErrInvalidCursor) {
		t.Fatalf("malformed cursor err = %v, want ErrInvalidCursor", err)
	}
}

func TestUpdateEmailUniqueness(t *testing.T) {
	svc := newTestService(nil)
	register(t, svc, "taken@example.com")
	user := register(t, svc, "jan@example.com")

	_, err := svc.Update(context.Background(), user.ID.Hex(), UpdateInput{Email: "taken@example.com"})
	if !errors.Is(err, repository.ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}

	updated, err := svc.Update(context.Background(), user.ID.Hex(), UpdateInput{Name: "Renamed"})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.Name != "Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}
}

func TestUpdateBillingUpsert(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@flaw.uniba.sk")

	// Matching name updates the embedded record in place.
	updated, err := svc.UpdateBilling(context.Background(), user.ID.Hex(), models.Billing{
		Name: "Univerzita Komenského v Bratislave, Právnická fakulta",
		ICO:  "11111111",
		Address: models.Address{
			Street: "Nová 1", City: "Bratislava", Postal: "81000", Country: "Slovensko",
		},
	})
	if err != nil {
		t.Fatalf("UpdateBilling error: %v", err)
	}
	if len(updated.Billings) != 1 {
		t.Fatalf("expected in-place update, got %d records", len(updated.Billings))
	}
	if updated.Billings[0].ICO != "11111111" {
		t.Fatalf("ICO = %q", updated.Billings[0].ICO)
	}

	// A new name appends.
	updated, err = svc.UpdateBilling(context.Background(), user.ID.Hex(), models.Billing{
		Name:    "Personal",
		Address: models.Address{Street: "Iná 2", City: "Košice", Postal: "04001", Country: "Slovensko"},
	})
	if err != nil {
		t.Fatalf("UpdateBilling append error: %v", err)
	}
	if len(updated.Billings) != 2 {
		t.Fatalf("expected appended record, got %d records", len(updated.Billings))
	}
}

func TestForgotPassword(t *testing.T) {
	mailer := &fakeMailer{}
	svc := newTestService(mailer)
	register(t, svc, "jan@example.com")

	if err := svc.ForgotPassword(context.Background(), "jan@example.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}
	if mailer.to != "jan@example.com" || mailer.subject != "Password Reset" {
		t.Fatalf("mail not sent as expected: to=%q subject=%q", mailer.to, mailer.subject)
	}
	if !strings.Contains(mailer.text, "token") {
		t.Fatalf("mail body missing token: %q", mailer.text)
	}

	if err := svc.ForgotPassword(context.Background(), "nobody@example.com"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("unknown email err = %v, want ErrUserNotFound", err)
	}
}

func TestResetPassword(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")

	token, err := security.SignReset("test-secret", user.ID.Hex(), time.Hour)
	if err != nil {
		t.Fatalf("SignReset error: %v", err)
	}

	if _, err := svc.ResetPassword(context.Background(), token, "new-password-9"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	if _, err := svc.Login(context.Background(), "jan@example.com", "new-password-9"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), "jan@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password still accepted after reset")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")

	token, err := security.SignReset("test-secret", user.ID.Hex(), -time.Minute)
	if err != nil {
		t.Fatalf("SignReset error: %v", err)
	}

	if _, err := svc.ResetPassword(context.Background(), token, "new-password-9"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("err = %v, want ErrResetTokenExpired", err)
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")

	if err := svc.Delete(context.Background(), user.ID.Hex()); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := svc.Delete(context.Background(), user.ID.Hex()); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("second delete err = %v, want ErrUserNotFound", err)
	}
}

func TestSetVerified(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")

	updated, err := svc.SetVerified(context.Background(), user.ID.Hex(), true)
	if err != nil {
		t.Fatalf("SetVerified error: %v", err)
	}
	if !updated.Verified {
		t.Fatal("expected verified true")
	}
}

func TestCollectStats(t *testing.T) {
	svc := newTestService(nil)
	user := register(t, svc, "jan@example.com")
	register(t, svc, "eva@example.com")

	if _, err := svc.SetVerified(context.Background(), user.ID.Hex(), true); err != nil {
		t.Fatalf("SetVerified error: %v", err)
	}

	stats, err := svc.CollectStats(context.Background())
	if err != nil {
		t.Fatalf("CollectStats error: %v", err)
	}
	if stats.Total != 2 {
		t.Fatalf("total = %d, want 2", stats.Total)
	}
	if stats.Verified != 1 {
		t.Fatalf("verified = %d, want 1", stats.Verified)
	}
	if stats.ByRole["BASIC"] != 2 {
		t.Fatalf("byRole[BASIC] = %d, want 2", stats.ByRole["BASIC"])
	}
}
