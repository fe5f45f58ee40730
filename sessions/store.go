package sessions

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/storefront-admin/api"
	"github.com/jrsteele09/storefront-admin/internal/metrics"
	"github.com/jrsteele09/storefront-admin/token"
	"github.com/jrsteele09/storefront-admin/token/storage"
	"github.com/jrsteele09/storefront-admin/users"
	"github.com/rs/zerolog/log"
)

// User-facing login messages
const (
	MessageLoginSuccess    = "Login successful"
	MessageLoginFailed     = "Login failed. Please try again."
	MessageInvalidResponse = "Invalid response from server"
	MessageSaveFailed      = "Unable to save session. Please try again."
	MessageSessionEnded    = "Session ended before login completed"
)

const (
	loginKindUser  = "user"
	loginKindAdmin = "admin"
)

var ErrClosed = errors.New("session store closed")

// Result is what Login and AdminLogin report to their caller
type Result struct {
	Success bool
	Message string
}

// Store is the single source of truth for who is logged in, kept in step with durable token storage.
//
// Rehydrate and the login calls are serialized; Logout is not. Logout starts a new
// generation and cancels whatever is in flight, and results belonging to an older
// generation are discarded instead of being recorded.
type Store struct {
	collab  api.Collaborator
	repo    storage.Repo
	metrics *metrics.AppMetrics
	nowTime func() time.Time

	// storageMu orders token writes against Logout; it is taken before mu and may be
	// held across repo I/O. mu is never held across I/O.
	storageMu  sync.Mutex
	mu         sync.Mutex
	state      State
	seq        uint64
	generation uint64
	baseCtx    context.Context
	baseCancel context.CancelFunc
	genCtx     context.Context
	genCancel  context.CancelFunc

	ops    chan struct{}
	closed chan struct{}

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	notifyMu  sync.Mutex
	delivered uint64

	rehydrateOnce sync.Once
	closeOnce     sync.Once
}

type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func WithMetrics(m *metrics.AppMetrics) StoreOption {
	return func(s *Store) {
		s.metrics = m
	}
}

// New creates a Store in the Loading state. Call Rehydrate once at startup.
func New(collab api.Collaborator, repo storage.Repo, options ...StoreOption) *Store {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	genCtx, genCancel := context.WithCancel(baseCtx)

	s := &Store{
		collab:     collab,
		repo:       repo,
		nowTime:    time.Now,
		state:      Loading{},
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
		genCtx:     genCtx,
		genCancel:  genCancel,
		ops:        make(chan struct{}, 1),
		closed:     make(chan struct{}),
		subs:       make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(s)
	}
	s.metrics.SetSessionStatus(string(StatusLoading), allStatuses...)
	return s
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) Status() Status {
	return s.State().Status()
}

// User returns the authenticated profile, if any
func (s *Store) User() (users.Profile, bool) {
	return UserOf(s.State())
}

// Subscribe registers fn to be called with new states, in the order they were set. A
// notification overtaken by a later state change is skipped, so the last state a
// subscriber sees is the current one. fn may read State but must not call Login,
// AdminLogin or Logout. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// Rehydrate rebuilds the session from persisted tokens. Only the first call does any
// work; failures of any kind leave the session Unauthenticated with storage purged.
func (s *Store) Rehydrate(ctx context.Context) {
	s.rehydrateOnce.Do(func() {
		s.rehydrate(ctx)
	})
}

func (s *Store) rehydrate(parent context.Context) {
	ctx, gen, release, err := s.begin(parent)
	if err != nil {
		log.Warn().Err(err).Msg("session rehydrate not started")
		s.commit(gen, Unauthenticated{})
		return
	}
	defer release()
	s.commit(gen, Loading{})

	record, err := s.repo.Load(ctx)
	if err != nil {
		// ErrNotFound also covers a half-written record, so storage is purged either way
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Msg("session rehydrate: unreadable token storage")
		}
		s.purge(ctx, gen)
		s.metrics.ObserveRehydrate(metrics.OutcomeNoToken)
		return
	}

	tokens := token.NewPair(record.AuthToken, record.RefreshToken)
	if tokens.Expired(s.nowTime()) {
		log.Info().Time("expiry", tokens.Expiry()).Msg("session rehydrate: persisted token expired")
		s.purge(ctx, gen)
		s.metrics.ObserveRehydrate(metrics.OutcomeInvalid)
		return
	}

	resp, err := s.collab.Profile(ctx, tokens.OAuth2())
	if err != nil {
		log.Warn().Err(err).Msg("session rehydrate: profile fetch failed")
		s.purge(ctx, gen)
		s.metrics.ObserveRehydrate(metrics.OutcomeTransport)
		return
	}

	var user *users.Profile
	if resp != nil && resp.Success && resp.Data != nil {
		user = resp.Data.User
	}
	authenticated, ok := newAuthenticated(user, tokens)
	if !ok {
		log.Info().Msg("session rehydrate: token rejected")
		s.purge(ctx, gen)
		s.metrics.ObserveRehydrate(metrics.OutcomeInvalid)
		return
	}

	if !s.commit(gen, authenticated) {
		s.metrics.ObserveRehydrate(metrics.OutcomeDiscarded)
		return
	}
	s.metrics.ObserveRehydrate(metrics.OutcomeSuccess)
}

// Login signs in through the standard storefront login
func (s *Store) Login(ctx context.Context, credentials api.Credentials) Result {
	return s.login(ctx, loginKindUser, s.collab.Login, credentials)
}

// AdminLogin signs in through the admin login. Role checks are the collaborator's job.
func (s *Store) AdminLogin(ctx context.Context, credentials api.Credentials) Result {
	return s.login(ctx, loginKindAdmin, s.collab.AdminLogin, credentials)
}

type loginCall func(context.Context, api.Credentials) (*api.LoginResponse, error)

func (s *Store) login(parent context.Context, kind string, call loginCall, credentials api.Credentials) Result {
	ctx, gen, release, err := s.begin(parent)
	if err != nil {
		return Result{Success: false, Message: MessageLoginFailed}
	}
	defer release()

	previous := s.State()
	s.commit(gen, Loading{})

	fail := func(outcome, message string) Result {
		s.commit(gen, previous)
		s.metrics.ObserveLogin(kind, outcome)
		return Result{Success: false, Message: message}
	}

	resp, err := call(ctx, credentials)
	if err != nil {
		if s.stale(gen) {
			return fail(metrics.OutcomeDiscarded, MessageSessionEnded)
		}
		if api.IsUndecodableSuccess(err) {
			log.Warn().Err(err).Str("kind", kind).Msg("login response could not be decoded")
			return fail(metrics.OutcomeRejected, MessageInvalidResponse)
		}
		log.Warn().Err(err).Str("kind", kind).Msg("login request failed")
		message := api.ErrorMessage(err)
		if message == "" {
			message = MessageLoginFailed
		}
		return fail(metrics.OutcomeTransport, message)
	}

	if resp == nil {
		return fail(metrics.OutcomeRejected, MessageInvalidResponse)
	}
	if !resp.Success {
		message := resp.Message
		if message == "" {
			message = MessageLoginFailed
		}
		return fail(metrics.OutcomeRejected, message)
	}

	if resp.Data == nil || resp.Data.RefreshToken == "" {
		return fail(metrics.OutcomeRejected, MessageInvalidResponse)
	}
	authenticated, ok := newAuthenticated(resp.Data.User, token.NewPair(resp.Data.Token, resp.Data.RefreshToken))
	if !ok {
		return fail(metrics.OutcomeRejected, MessageInvalidResponse)
	}

	committed, err := s.persistAndCommit(ctx, gen, authenticated)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("login: failed to persist tokens")
		return fail(metrics.OutcomeRejected, MessageSaveFailed)
	}
	if !committed {
		s.metrics.ObserveLogin(kind, metrics.OutcomeDiscarded)
		return Result{Success: false, Message: MessageSessionEnded}
	}

	s.metrics.ObserveLogin(kind, metrics.OutcomeSuccess)
	message := resp.Message
	if message == "" {
		message = MessageLoginSuccess
	}
	return Result{Success: true, Message: message}
}

// Logout clears persisted tokens and resets the session. It never fails; in-flight
// rehydrate or login calls are cancelled and their results dropped.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(s.baseCtx)
	s.mu.Unlock()

	s.storageMu.Lock()
	s.mu.Lock()
	seq := s.setStateLocked(Unauthenticated{})
	s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("logout: failed to clear persisted tokens")
	}
	s.storageMu.Unlock()

	s.notify(seq, Unauthenticated{})
}

// Close cancels in-flight work and drops subscribers
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.baseCancel()

		s.subsMu.Lock()
		s.subs = make(map[int]func(State))
		s.subsMu.Unlock()
	})
}

// begin waits for exclusive use of the collaborator and returns a context that is
// cancelled when parent is, or when a Logout supersedes the current generation.
func (s *Store) begin(parent context.Context) (context.Context, uint64, func(), error) {
	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	select {
	case <-s.closed:
		return nil, gen, nil, ErrClosed
	default:
	}

	select {
	case s.ops <- struct{}{}:
	case <-parent.Done():
		return nil, gen, nil, parent.Err()
	case <-s.closed:
		return nil, gen, nil, ErrClosed
	}

	s.mu.Lock()
	gen = s.generation
	genCtx := s.genCtx
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(genCtx, cancel)
	release := func() {
		stop()
		cancel()
		<-s.ops
	}
	return ctx, gen, release, nil
}

func (s *Store) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != gen
}

// commit sets state if gen is still current
func (s *Store) commit(gen uint64, state State) bool {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return false
	}
	seq := s.setStateLocked(state)
	s.mu.Unlock()

	s.notify(seq, state)
	return true
}

// persistAndCommit writes both tokens and records the authenticated state as one step.
// Holding storageMu throughout keeps a concurrent Logout's Clear strictly before or after.
func (s *Store) persistAndCommit(ctx context.Context, gen uint64, state Authenticated) (bool, error) {
	s.storageMu.Lock()
	defer s.storageMu.Unlock()

	if s.stale(gen) {
		return false, nil
	}
	record := storage.Record{
		AuthToken:    state.Tokens.AccessToken(),
		RefreshToken: state.Tokens.RefreshToken(),
	}
	if err := s.repo.Save(ctx, record); err != nil {
		return false, err
	}

	s.mu.Lock()
	if s.generation != gen {
		// the Logout that superseded us is waiting on storageMu and clears this record
		s.mu.Unlock()
		return false, nil
	}
	seq := s.setStateLocked(state)
	s.mu.Unlock()

	s.notify(seq, state)
	return true, nil
}

// purge removes persisted tokens and demotes the session, unless gen has been superseded
func (s *Store) purge(ctx context.Context, gen uint64) {
	s.storageMu.Lock()
	defer s.storageMu.Unlock()

	if s.stale(gen) {
		return
	}
	if err := s.repo.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("session: failed to purge persisted tokens")
	}
	s.commit(gen, Unauthenticated{})
}

// setStateLocked records state and returns its sequence number for notify
func (s *Store) setStateLocked(state State) uint64 {
	s.state = state
	s.seq++
	s.metrics.SetSessionStatus(string(state.Status()), allStatuses...)
	return s.seq
}

func (s *Store) notify(seq uint64, state State) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if seq <= s.delivered {
		return
	}
	s.delivered = seq

	s.subsMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}
