//go:build unit
// +build unit

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatch/cloudwatchiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"climb-calendar/auth"
	"climb-calendar/cache"
	"climb-calendar/calendar"
	"climb-calendar/models"
	"climb-calendar/store"
)

type fakeGate struct {
	admin bool
	user  *auth.User
}

func (g fakeGate) IsAdmin(context.Context) bool { return g.admin }
func (g fakeGate) CurrentUser(context.Context) *auth.User { return g.user }

var (
	adminGate = fakeGate{admin: true, user: &auth.User{ID: "u1", Email: "admin@example.com", ElevatedRole: true}}
	userGate  = fakeGate{user: &auth.User{ID: "u2", Email: "climber@example.com"}}
	anonGate  = fakeGate{}
)

type notifications struct {
	mu  sync.Mutex
	got []cache.Notification
}

func (n *notifications) Notify(x cache.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.got = append(n.got, x)
}

func newCompetition() models.CompetitionNew {
	return models.CompetitionNew{
		Name:         "Sofia Open",
		Date:         calendar.Date(2024, 4, 1),
		DateDuration: 3,
		Type:         []models.CompetitionType{models.TypeBoulder},
		Category:     []models.Category{models.CategoryU12},
	}
}

func TestCompetitionAdd_NonAdminMakesNoStoreCalls(t *testing.T) {
	m := new(store.MockStore)
	n := &notifications{}
	svc := NewCompetitionService(cache.New(cache.WithNotifier(n)), m, userGate, "competitions")

	_, err := svc.Add(context.Background(), newCompetition())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPermission)
	assert.Equal(t, "only an authorized user may add competitions", err.Error())

	assert.ErrorIs(t, svc.Edit(context.Background(), "x", newCompetition()), ErrPermission)
	assert.ErrorIs(t, svc.Delete(context.Background(), "x"), ErrPermission)

	assert.Empty(t, m.Calls)
	require.Len(t, n.got, 3)
	assert.Equal(t, "Competition Add", n.got[0].Title())
	assert.False(t, n.got[0].Success())
}

func TestCompetitionAdd_InvalidNeverLeavesService(t *testing.T) {
	m := new(store.MockStore)
	n := &notifications{}
	svc := NewCompetitionService(cache.New(cache.WithNotifier(n)), m, adminGate, "competitions")

	c := newCompetition()
	c.Category = nil
	_, err := svc.Add(context.Background(), c)

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, m.Calls)
	assert.Empty(t, n.got, "validation errors are not notifications")
}

func TestCompetitionLifecycle_PushConfirmed(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	n := &notifications{}
	svc := NewCompetitionService(cache.New(cache.WithNotifier(n)), s, adminGate, "competitions")

	cs, e := svc.Competitions()
	assert.Nil(t, cs)
	assert.Equal(t, cache.StatusUnknown, e.Status)

	require.NoError(t, svc.Mount(ctx, "view"))
	defer svc.Unmount("view")

	id, err := svc.Add(ctx, newCompetition())
	require.NoError(t, err)

	cs, _ = svc.Competitions()
	require.Len(t, cs, 1)
	assert.Equal(t, id, cs[0].ID)
	assert.Equal(t, "Sofia Open", cs[0].Name)
	assert.Equal(t, 3, cs[0].DateDuration)
	assert.Equal(t, []models.Category{models.CategoryU12}, cs[0].Category)
	assert.True(t, cs[0].Date.Equal(calendar.Date(2024, 4, 1)))

	edited := newCompetition()
	edited.Name = "Sofia Open 2024"
	edited.Balkan = true
	require.NoError(t, svc.Edit(ctx, id, edited))

	got, _ := svc.Filtered(calendar.Filter{Balkan: true})
	require.Len(t, got, 1)
	assert.Equal(t, "Sofia Open 2024", got[0].Name)

	require.NoError(t, svc.Delete(ctx, id))
	cs, _ = svc.Competitions()
	assert.Empty(t, cs)

	assert.Len(t, n.got, 3)
	assert.Equal(t, 0, svc.Pending())
}

// A date submitted with a positive offset keeps its calendar day through
// the store.
func TestCompetitionAdd_KeepsSubmittedDay(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewCompetitionService(cache.New(), s, adminGate, "competitions")

	c := newCompetition()
	c.Date = time.Date(2024, 4, 1, 0, 0, 0, 0, time.FixedZone("EEST", 3*3600))
	_, err := svc.Add(ctx, c)
	require.NoError(t, err)

	_, err = svc.Refetch(ctx)
	require.NoError(t, err)
	cs, _ := svc.Competitions()
	require.Len(t, cs, 1)
	assert.True(t, cs[0].Date.Equal(calendar.Date(2024, 4, 1)), "stored %s", cs[0].Date)

	item := models.CompetitionItem(cs[0])
	kind, ok := calendar.Classify(calendar.Date(2024, 4, 1), item)
	require.True(t, ok)
	assert.Equal(t, calendar.PlacementStart, kind)
	_, ok = calendar.Classify(calendar.Date(2024, 3, 31), item)
	assert.False(t, ok)
	kind, _ = calendar.Classify(calendar.Date(2024, 4, 3), item)
	assert.Equal(t, calendar.PlacementEnd, kind)
}

func TestParseCompetition_DateOnlyString(t *testing.T) {
	c, err := parseCompetition(store.Document{ID: "c1", Data: store.Data{"name": "Old", "date": "2024-04-01", "dateDuration": 1}})
	require.NoError(t, err)
	assert.True(t, c.Date.Equal(calendar.Date(2024, 4, 1)))
}

func TestCompetitionEdit_StoreFailureLeavesCache(t *testing.T) {
	ctx := context.Background()
	m := new(store.MockStore)
	m.On("UpdateDoc", mock.Anything, "competitions", "x", mock.Anything).Return(errors.New("quota exceeded"))
	c := cache.New()
	svc := NewCompetitionService(c, m, adminGate, "competitions")
	c.Write(CompetitionsKey, []models.Competition{{ID: "x"}})

	err := svc.Edit(ctx, "x", newCompetition())
	assert.Error(t, err)

	cs, _ := svc.Competitions()
	assert.Equal(t, []models.Competition{{ID: "x"}}, cs)
	m.AssertNumberOfCalls(t, "UpdateDoc", 1)
}

func TestParseCompetitions_SkipsBadDocuments(t *testing.T) {
	v, err := parseCompetitions([]store.Document{
		{ID: "ok", Data: store.Data{"name": "A", "date": time.Now(), "dateDuration": float64(2), "type": "Lead"}},
		{ID: "bad", Data: store.Data{"name": "B", "date": 42}},
	})
	require.NoError(t, err)
	cs := v.([]models.Competition)
	require.Len(t, cs, 1)
	assert.Equal(t, 2, cs[0].DateDuration)
	assert.Equal(t, []models.CompetitionType{models.TypeLead}, cs[0].Type)
}

func TestUserEvents_RequireSession(t *testing.T) {
	m := new(store.MockStore)
	svc := NewUserEventService(cache.New(), m, anonGate, func(email string) string { return "userEvents/" + email + "/events" })

	_, err := svc.Add(context.Background(), models.UserEventNew{Name: "Camp", Date: time.Now(), DateDuration: 2})
	assert.ErrorIs(t, err, ErrPermission)
	_, err = svc.Mount(context.Background(), "view")
	assert.ErrorIs(t, err, ErrPermission)
	assert.Empty(t, m.Calls)
}

func TestUserEvents_OwnPartition(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	svc := NewUserEventService(cache.New(), s, userGate, func(email string) string { return "userEvents/" + email + "/events" })

	key, err := svc.Mount(ctx, "view")
	require.NoError(t, err)
	defer svc.Unmount(key, "view")

	id, err := svc.Add(ctx, models.UserEventNew{Name: "Training camp", Date: calendar.Date(2024, 7, 1), DateDuration: 10, Type: "camp"})
	require.NoError(t, err)

	refs, err := s.ListDocuments(ctx, "userEvents/climber@example.com/events")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, id, refs[0].ID)

	es, _, err := svc.UserEvents(ctx)
	require.NoError(t, err)
	require.Len(t, es, 1)
	assert.Equal(t, "camp", es[0].Type)

	require.NoError(t, svc.Delete(ctx, id))
	es, _, err = svc.UserEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, es)
}

func testAccounts(t *testing.T) *auth.LocalProvider {
	h, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewLocalProvider([]byte("secret"), []auth.Account{
		{UID: "u1", Email: "admin@example.com", PasswordHash: string(h), EmailVerified: true},
		{UID: "u2", Email: "climber@example.com", PasswordHash: string(h), EmailVerified: true},
		{UID: "u3", Email: "unverified@example.com", PasswordHash: string(h)},
	})
}

func TestMakeAdmins(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetDoc(ctx, "admins", "admin@example.com", store.Data{}))
	require.NoError(t, s.SetDoc(ctx, "admins", "ghost@example.com", store.Data{}))
	p := testAccounts(t)
	b := NewAdminBootstrap(s, p, "admins")

	n, err := b.MakeAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = b.MakeAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "already an admin")

	rec, err := p.UserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, rec.CustomClaims["role"])
}

func TestOnUserCreated_GrantsOnFirstSignIn(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetDoc(ctx, "admins", "admin@example.com", store.Data{}))
	require.NoError(t, s.SetDoc(ctx, "admins", "unverified@example.com", store.Data{}))
	p := testAccounts(t)
	p.OnUserCreated(NewAdminBootstrap(s, p, "admins").OnUserCreated)
	g := auth.NewGate(p)

	sess, err := g.SignInWithPopup(ctx, "s1", auth.PasswordCredential{Email: "admin@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.True(t, sess.User.ElevatedRole)

	sess, err = g.SignInWithPopup(ctx, "s2", auth.PasswordCredential{Email: "unverified@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, sess.User.ElevatedRole)

	sess, err = g.SignInWithPopup(ctx, "s3", auth.PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.False(t, sess.User.ElevatedRole)
}

func TestRefetchOnAuthChange(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	_, err := s.AddDoc(ctx, "competitions", competitionData(newCompetition()))
	require.NoError(t, err)

	g := auth.NewGate(testAccounts(t))
	svc := NewCompetitionService(cache.New(), s, g, "competitions")
	stop := RefetchOnAuthChange(g, svc)
	defer stop()

	_, e := svc.Competitions()
	assert.Equal(t, cache.StatusUnknown, e.Status)

	_, err = g.SignInWithPopup(ctx, "s1", auth.PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)

	cs, e := svc.Competitions()
	assert.Equal(t, cache.StatusLoaded, e.Status)
	assert.Len(t, cs, 1)
}

func TestRefetchOnAuthChange_SkipsWhileLive(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	g := auth.NewGate(testAccounts(t))
	svc := NewCompetitionService(cache.New(), s, g, "competitions")
	require.NoError(t, svc.Mount(ctx, "server"))
	defer svc.Unmount("server")
	defer RefetchOnAuthChange(g, svc)()

	_, before := svc.Competitions()
	_, err := g.SignInWithPopup(ctx, "s1", auth.PasswordCredential{Email: "climber@example.com", Password: "pw"})
	require.NoError(t, err)
	g.SignOut("s1")

	_, after := svc.Competitions()
	assert.Equal(t, before.Version, after.Version)
}

func TestPreferences(t *testing.T) {
	p := NewPreferences(cache.New())
	assert.Equal(t, ViewCalendar, p.ViewMode("s1"))

	require.NoError(t, p.SetViewMode("s1", ViewTable))
	assert.Equal(t, ViewTable, p.ViewMode("s1"))
	assert.Equal(t, ViewCalendar, p.ViewMode("s2"))

	assert.Error(t, p.SetViewMode("s1", "grid"))
}

type mockCloudWatch struct {
	cloudwatchiface.CloudWatchAPI
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(in *cloudwatch.PutMetricDataInput) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(in)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestCloudWatchMetrics(t *testing.T) {
	cw := new(mockCloudWatch)
	cw.On("PutMetricData", mock.Anything).Return(nil)
	m := &CloudWatchMetrics{client: cw, namespace: MetricsNamespace}

	m.ActiveSubscriptions(2)
	m.MutationLatency("CompetitionAdd", 15*time.Millisecond, errors.New("boom"))

	cw.AssertNumberOfCalls(t, "PutMetricData", 3)
	first := cw.Calls[0].Arguments.Get(0).(*cloudwatch.PutMetricDataInput)
	assert.Equal(t, "ActiveSubscriptions", *first.MetricData[0].MetricName)
	assert.Equal(t, 2.0, *first.MetricData[0].Value)
}
