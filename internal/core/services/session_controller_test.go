package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pointjournaliere/internal/core/domain"
	"pointjournaliere/internal/core/services/mocks"
	"pointjournaliere/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const testToken = "id-token-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

func waterPowerContext() *domain.Context {
	return &domain.Context{
		Authorized:     true,
		CentreName:     "Centre Nord",
		Email:          "agent@example.org",
		NomUtilisateur: "Agent Nord",
		Services: []domain.Service{
			{ServiceID: "1", NomService: "Water"},
			{ServiceID: "2", NomService: "Power"},
		},
	}
}

type ControllerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	identity   *mocks.MockIdentityProvider
	gateway    *mocks.MockGateway
	receipts   *mocks.MockReceiptRecorder
	metrics    *metrics.Metrics
	clock      *fakeClock
	controller *SessionController
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.identity = mocks.NewMockIdentityProvider(s.ctrl)
	s.gateway = mocks.NewMockGateway(s.ctrl)
	s.receipts = mocks.NewMockReceiptRecorder(s.ctrl)
	s.metrics = metrics.NewNop()
	s.clock = &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s.controller = NewSessionController(s.identity, s.gateway,
		WithClock(s.clock.Now),
		WithReceiptRecorder(s.receipts),
		WithMetrics(s.metrics),
	)
}

// authorize signs in with testToken and loads the Water/Power context
func (s *ControllerSuite) authorize() {
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(waterPowerContext(), nil)
	s.Require().NoError(s.controller.OnIdentityToken(context.Background(), testToken))
	s.Require().Equal(domain.PhaseAuthorized, s.controller.Snapshot().Phase)
}

func (s *ControllerSuite) editBoth() {
	s.Require().NoError(s.controller.EditField("1", "50"))
	s.clock.Set(s.clock.Now().Add(time.Second))
	s.Require().NoError(s.controller.EditField("2", "12.5"))
}

func (s *ControllerSuite) TestNewSessionIsUnauthenticated() {
	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseUnauthenticated, snap.Phase)
	s.False(snap.HasToken())
	s.Nil(snap.Context)
	s.Empty(snap.Fields)
}

func (s *ControllerSuite) TestLoadContextInitializesZeroAmounts() {
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(&domain.Context{
		Authorized: true,
		Services:   []domain.Service{{ServiceID: "A", NomService: "Svc A"}},
	}, nil)

	s.Require().NoError(s.controller.OnIdentityToken(context.Background(), testToken))

	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseAuthorized, snap.Phase)
	s.Require().Len(snap.Fields, 1)
	s.True(snap.Fields["A"].Amount.Set)
	s.Equal(0.0, snap.Fields["A"].Amount.Value)
	s.Nil(snap.Fields["A"].FilledAt)
	s.False(snap.Loading)
}

func (s *ControllerSuite) TestLoadContextUnauthorizedHidesServices() {
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(&domain.Context{
		Authorized: false,
		Email:      "stranger@example.org",
		Services:   []domain.Service{{ServiceID: "A", NomService: "Svc A"}},
	}, nil)

	s.Require().NoError(s.controller.OnIdentityToken(context.Background(), testToken))

	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseUnauthorized, snap.Phase)
	s.Empty(snap.Services())
	s.Empty(snap.Fields)
	s.ErrorIs(s.controller.EditField("A", "3"), domain.ErrNotAuthorized)
}

func (s *ControllerSuite) TestLoadContextWithoutTokenIsNoop() {
	s.NoError(s.controller.LoadContext(context.Background()))
	s.Equal(domain.PhaseUnauthenticated, s.controller.Snapshot().Phase)
}

func (s *ControllerSuite) TestLoadContextResetsUnsubmittedEdits() {
	s.authorize()
	s.editBoth()

	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(waterPowerContext(), nil)
	s.Require().NoError(s.controller.LoadContext(context.Background()))

	snap := s.controller.Snapshot()
	for _, id := range []string{"1", "2"} {
		s.Equal(0.0, snap.Fields[id].Amount.Value)
		s.Nil(snap.Fields[id].FilledAt)
	}
}

func (s *ControllerSuite) TestLoadContextFailureKeepsPriorContext() {
	s.authorize()
	s.Require().NoError(s.controller.EditField("1", "7"))

	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(nil, domain.ErrNetwork)
	err := s.controller.LoadContext(context.Background())
	s.ErrorIs(err, domain.ErrNetwork)

	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseAuthorized, snap.Phase)
	s.Equal("Centre Nord", snap.Context.CentreName)
	s.Equal("7", snap.Fields["1"].Amount.Raw)
	s.Equal(domain.ErrNetwork.Error(), snap.Error)
	s.False(snap.Loading)
}

func (s *ControllerSuite) TestFirstLoadFailureStaysInContextLoading() {
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(nil, domain.ErrMalformedResponse)

	err := s.controller.OnIdentityToken(context.Background(), testToken)
	s.ErrorIs(err, domain.ErrMalformedResponse)

	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseContextLoading, snap.Phase)
	s.True(snap.HasToken())
	s.False(snap.Loading)
	s.NotEmpty(snap.Error)
}

func (s *ControllerSuite) TestStaleContextResponseIsDiscarded() {
	s.authorize()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).DoAndReturn(
		func(context.Context, string) (*domain.Context, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
				stale := waterPowerContext()
				stale.CentreName = "Old"
				return stale, nil
			}
			fresh := waterPowerContext()
			fresh.CentreName = "New"
			return fresh, nil
		}).Times(2)

	done := make(chan error)
	go func() { done <- s.controller.LoadContext(context.Background()) }()
	<-started

	s.Require().NoError(s.controller.LoadContext(context.Background()))
	close(release)
	s.Require().NoError(<-done)

	s.Equal("New", s.controller.Snapshot().Context.CentreName)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StaleResponses))
}

func (s *ControllerSuite) TestEditFieldStampsFilledAt() {
	s.authorize()

	s.Require().NoError(s.controller.EditField("1", "50"))

	field := s.controller.Snapshot().Fields["1"]
	s.Require().NotNil(field.FilledAt)
	s.Equal(s.clock.Now().UnixMilli(), *field.FilledAt)
	s.Equal(50.0, field.Amount.Value)
}

func (s *ControllerSuite) TestEditFieldFilledAtIsMonotonic() {
	s.authorize()

	s.Require().NoError(s.controller.EditField("1", "1"))
	first := *s.controller.Snapshot().Fields["1"].FilledAt

	s.clock.Set(s.clock.Now().Add(-time.Minute))
	s.Require().NoError(s.controller.EditField("1", "2"))
	second := *s.controller.Snapshot().Fields["1"].FilledAt
	s.GreaterOrEqual(second, first)

	s.clock.Set(s.clock.Now().Add(time.Hour))
	s.Require().NoError(s.controller.EditField("1", "3"))
	third := *s.controller.Snapshot().Fields["1"].FilledAt
	s.Greater(third, second)
}

func (s *ControllerSuite) TestEditFieldAcceptsInvalidInput() {
	s.authorize()

	s.Require().NoError(s.controller.EditField("1", "-1"))
	s.Require().NoError(s.controller.EditField("2", "abc"))

	snap := s.controller.Snapshot()
	s.Equal(-1.0, snap.Fields["1"].Amount.Value)
	s.False(snap.Fields["2"].Amount.IsNumber())
	s.NotNil(snap.Fields["2"].FilledAt)
}

func (s *ControllerSuite) TestEditFieldStateErrors() {
	s.ErrorIs(s.controller.EditField("1", "5"), domain.ErrNotAuthenticated)

	s.authorize()
	s.ErrorIs(s.controller.EditField("999", "5"), domain.ErrUnknownService)
}

func (s *ControllerSuite) TestSubmitUntouchedFieldNamesService() {
	s.authorize()
	s.Require().NoError(s.controller.EditField("1", "50"))

	result, err := s.controller.Submit(context.Background())

	s.Nil(result)
	var verr *domain.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("Power", verr.NomService)
	s.Contains(s.controller.Snapshot().Error, "Power")
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ValidationFailures))
}

func (s *ControllerSuite) TestSubmitNegativeAmountNamesService() {
	s.authorize()
	s.Require().NoError(s.controller.EditField("1", "-1"))
	s.Require().NoError(s.controller.EditField("2", "4"))

	_, err := s.controller.Submit(context.Background())

	var verr *domain.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("Water", verr.NomService)
	s.Equal("Montant invalide pour: Water", verr.Message)
}

func (s *ControllerSuite) TestSubmitEmptyAmountIsInvalid() {
	s.authorize()
	s.Require().NoError(s.controller.EditField("1", "3"))
	s.Require().NoError(s.controller.EditField("2", ""))

	_, err := s.controller.Submit(context.Background())

	var verr *domain.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("Montant invalide pour: Power", verr.Message)
}

func (s *ControllerSuite) TestSubmitRequiresAuthorized() {
	_, err := s.controller.Submit(context.Background())
	s.ErrorIs(err, domain.ErrNotAuthenticated)
}

func (s *ControllerSuite) TestSubmitSendsItemsInContextOrder() {
	s.authorize()
	t1 := s.clock.Now().UnixMilli()
	s.editBoth()
	t2 := s.clock.Now().UnixMilli()

	expected := []domain.SubmitItem{
		{ServiceID: "1", Montant: 50, FilledAt: t1},
		{ServiceID: "2", Montant: 12.5, FilledAt: t2},
	}
	accepted := &domain.SubmitResult{OK: true, Saved: 2, DateUTC: "2024-01-01", TimeUTC: "12:00:00"}
	gomock.InOrder(
		s.gateway.EXPECT().Submit(gomock.Any(), testToken, expected).Return(accepted, nil),
		s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(waterPowerContext(), nil),
	)
	s.receipts.EXPECT().Record(gomock.Any(), domain.Receipt{
		Email:      "agent@example.org",
		CentreName: "Centre Nord",
		Saved:      2,
		DateUTC:    "2024-01-01",
		TimeUTC:    "12:00:00",
		ItemCount:  2,
	}).Return(nil)

	result, err := s.controller.Submit(context.Background())

	s.Require().NoError(err)
	s.Equal(2, result.Saved)
	snap := s.controller.Snapshot()
	s.Nil(snap.Fields["1"].FilledAt)
	s.Nil(snap.Fields["2"].FilledAt)
	s.Equal("Enregistré: 2 ligne(s) - 2024-01-01 12:00:00 UTC", s.controller.TakeNotice())
	s.Empty(s.controller.TakeNotice())
}

func (s *ControllerSuite) TestSubmitSuccessKeepsAmountsWhenRefreshFails() {
	s.authorize()
	s.editBoth()

	s.gateway.EXPECT().Submit(gomock.Any(), testToken, gomock.Any()).
		Return(&domain.SubmitResult{OK: true, Saved: 2}, nil)
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(nil, domain.ErrNetwork)
	s.receipts.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	_, err := s.controller.Submit(context.Background())
	s.Require().NoError(err)

	snap := s.controller.Snapshot()
	s.Equal(50.0, snap.Fields["1"].Amount.Value)
	s.Equal(12.5, snap.Fields["2"].Amount.Value)
	s.Nil(snap.Fields["1"].FilledAt)
	s.Nil(snap.Fields["2"].FilledAt)
	s.Equal(domain.ErrNetwork.Error(), snap.Error)

	// a second submit without new edits must be blocked
	_, err = s.controller.Submit(context.Background())
	var verr *domain.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("Water", verr.NomService)
}

func (s *ControllerSuite) TestSubmitBackendRejection() {
	s.authorize()
	s.editBoth()

	s.gateway.EXPECT().Submit(gomock.Any(), testToken, gomock.Any()).
		Return(&domain.SubmitResult{OK: false, Error: "Centre fermé"}, nil)

	_, err := s.controller.Submit(context.Background())

	var rejection *domain.BackendRejection
	s.Require().ErrorAs(err, &rejection)
	snap := s.controller.Snapshot()
	s.Equal("Centre fermé", snap.Error)
	s.NotNil(snap.Fields["1"].FilledAt)
	s.False(snap.Submitting)
}

func (s *ControllerSuite) TestSubmitRejectionWithoutMessageIsGeneric() {
	s.authorize()
	s.editBoth()

	s.gateway.EXPECT().Submit(gomock.Any(), testToken, gomock.Any()).Return(&domain.SubmitResult{OK: false}, nil)

	_, err := s.controller.Submit(context.Background())

	s.Require().Error(err)
	s.Equal(domain.GenericBackendError, s.controller.Snapshot().Error)
}

func (s *ControllerSuite) TestSubmitNetworkFailureChangesNothing() {
	s.authorize()
	s.editBoth()
	before := s.controller.Snapshot().Fields

	s.gateway.EXPECT().Submit(gomock.Any(), testToken, gomock.Any()).Return(nil, domain.ErrNetwork)

	_, err := s.controller.Submit(context.Background())

	s.ErrorIs(err, domain.ErrNetwork)
	s.Equal(before, s.controller.Snapshot().Fields)
}

func (s *ControllerSuite) TestConcurrentSubmitsMakeOneGatewayCall() {
	s.authorize()
	s.editBoth()

	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().Submit(gomock.Any(), testToken, gomock.Any()).DoAndReturn(
		func(context.Context, string, []domain.SubmitItem) (*domain.SubmitResult, error) {
			close(started)
			<-release
			return &domain.SubmitResult{OK: true, Saved: 2}, nil
		}).Times(1)
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(waterPowerContext(), nil)
	s.receipts.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = s.controller.Submit(context.Background())
	}()
	<-started
	s.True(s.controller.Snapshot().Submitting)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = s.controller.Submit(context.Background())
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	s.NoError(errs[0])
	// the second caller either joined the first submission or arrived after the reset
	if errs[1] != nil {
		var verr *domain.ValidationError
		s.ErrorAs(errs[1], &verr)
	}
}

func (s *ControllerSuite) TestSwitchAccountClearsEverything() {
	s.authorize()
	s.editBoth()

	s.identity.EXPECT().Revoke(gomock.Any(), "agent@example.org").Return(nil)

	email := s.controller.SwitchAccount(context.Background())
	s.controller.Wait()

	s.Equal("agent@example.org", email)
	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseUnauthenticated, snap.Phase)
	s.Nil(snap.Context)
	s.Empty(snap.Fields)
	s.Empty(snap.Error)
}

func (s *ControllerSuite) TestSwitchAccountWithoutEmailSkipsRevoke() {
	s.Empty(s.controller.SwitchAccount(context.Background()))
	s.controller.Wait()
	s.Equal(domain.PhaseUnauthenticated, s.controller.Snapshot().Phase)
}

func (s *ControllerSuite) TestSwitchAccountIgnoresRevokeFailure() {
	s.authorize()
	s.identity.EXPECT().Revoke(gomock.Any(), "agent@example.org").Return(errors.New("offline"))

	s.controller.SwitchAccount(context.Background())
	s.controller.Wait()

	s.Equal(domain.PhaseUnauthenticated, s.controller.Snapshot().Phase)
	s.Empty(s.controller.Snapshot().Error)
}

func (s *ControllerSuite) TestSwitchAccountDiscardsInFlightLoad() {
	started := make(chan struct{})
	release := make(chan struct{})
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).DoAndReturn(
		func(context.Context, string) (*domain.Context, error) {
			close(started)
			<-release
			return waterPowerContext(), nil
		})

	done := make(chan error)
	go func() { done <- s.controller.OnIdentityToken(context.Background(), testToken) }()
	<-started
	s.True(s.controller.Snapshot().Loading)

	s.controller.SwitchAccount(context.Background())
	close(release)
	s.Require().NoError(<-done)

	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseUnauthenticated, snap.Phase)
	s.Nil(snap.Context)
	s.False(snap.Loading)
}

func (s *ControllerSuite) TestSignInLoadsContext() {
	s.identity.EXPECT().SignIn(gomock.Any(), "credential").Return(&domain.Identity{
		Token: testToken,
		Email: "agent@example.org",
	}, nil)
	s.gateway.EXPECT().GetContext(gomock.Any(), testToken).Return(waterPowerContext(), nil)

	s.Require().NoError(s.controller.SignIn(context.Background(), "credential"))
	s.Equal(domain.PhaseAuthorized, s.controller.Snapshot().Phase)
}

func (s *ControllerSuite) TestSignInRejectedCredential() {
	s.identity.EXPECT().SignIn(gomock.Any(), "forged").Return(nil, domain.ErrInvalidCredential)

	err := s.controller.SignIn(context.Background(), "forged")

	s.ErrorIs(err, domain.ErrInvalidCredential)
	snap := s.controller.Snapshot()
	s.Equal(domain.PhaseUnauthenticated, snap.Phase)
	s.Equal(domain.ErrInvalidCredential.Error(), snap.Error)
}

func (s *ControllerSuite) TestOnIdentityTokenRejectsEmptyToken() {
	s.ErrorIs(s.controller.OnIdentityToken(context.Background(), ""), domain.ErrInvalidCredential)
}

func (s *ControllerSuite) TestSnapshotIsACopy() {
	s.authorize()
	s.Require().NoError(s.controller.EditField("1", "5"))

	snap := s.controller.Snapshot()
	*snap.Fields["1"].FilledAt = 0
	snap.Context.Services[0].NomService = "changed"

	fresh := s.controller.Snapshot()
	s.NotEqual(int64(0), *fresh.Fields["1"].FilledAt)
	s.Equal("Water", fresh.Context.Services[0].NomService)
}
