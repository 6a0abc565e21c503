package core

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"nexus.dev/research-console/internal/logging"
	"nexus.dev/research-console/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

const (
	maxLogEntries   = 100
	eventBufferSize = 64
)

type LogLevel string

const (
	LogInfo   LogLevel = "info"
	LogWarn   LogLevel = "warn"
	LogError  LogLevel = "error"
	LogSec    LogLevel = "sec"
	LogKernel LogLevel = "kernel"
)

type LogEntry struct {
	Time    time.Time `json:"t"`
	Message string    `json:"m"`
	Level   LogLevel  `json:"s"`
}

// SecurityIndicator is the pre-flight gate state shown to the user.
type SecurityIndicator string

const (
	SecurityIdle     SecurityIndicator = "idle"
	SecurityScanning SecurityIndicator = "scanning"
	SecuritySafe     SecurityIndicator = "safe"
	SecurityAlert    SecurityIndicator = "alert"
)

type EventKind string

const (
	EventPhase    EventKind = "phase"
	EventAgent    EventKind = "agent"
	EventLog      EventKind = "log"
	EventMessage  EventKind = "message"
	EventSecurity EventKind = "security"
	EventMode     EventKind = "mode"
)

type Event struct {
	Kind EventKind   `json:"kind"`
	Time time.Time   `json:"time"`
	Data interface{} `json:"data"`
}

// SessionState is a copy of a session safe to hand out.
type SessionState struct {
	ID         string            `json:"id"`
	Mode       ReasoningMode     `json:"mode"`
	Phase      Phase             `json:"phase"`
	Processing bool              `json:"processing"`
	Security   SecurityIndicator `json:"security"`
	Agents     []AgentState      `json:"agents"`
	Messages   []store.Message   `json:"messages"`
}

// Session holds all per-client turn state: conversation, mode, cosmetic
// agent/phase telemetry and the single-turn processing flag. Every pipeline
// stage receives the session explicitly.
type Session struct {
	ID string

	mu         sync.Mutex
	mode       ReasoningMode
	phase      Phase
	processing bool
	security   SecurityIndicator
	agents     []AgentState
	messages   []store.Message
	logs       []LogEntry // newest first
	lastActive time.Time

	subMu       sync.Mutex
	nextSubID   int
	subscribers map[int]chan Event
}

func newSession(mode ReasoningMode) *Session {
	return &Session{
		ID:          uuid.NewString(),
		mode:        mode,
		phase:       PhaseIdle,
		security:    SecurityIdle,
		agents:      DefaultAgents(),
		lastActive:  time.Now(),
		subscribers: make(map[int]chan Event),
	}
}

func (s *Session) Mode() ReasoningMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) SetMode(mode ReasoningMode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.publish(EventMode, mode)
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
	s.publish(EventPhase, p)
}

func (s *Session) setSecurity(ind SecurityIndicator) {
	s.mu.Lock()
	s.security = ind
	s.mu.Unlock()
	s.publish(EventSecurity, ind)
}

func (s *Session) updateAgent(id AgentID, status AgentStatus, load int) {
	s.mu.Lock()
	var changed *AgentState
	for i := range s.agents {
		if s.agents[i].ID == id {
			s.agents[i].Status = status
			s.agents[i].Load = load
			a := s.agents[i]
			changed = &a
			break
		}
	}
	s.mu.Unlock()
	if changed != nil {
		s.publish(EventAgent, *changed)
	}
}

func (s *Session) resetAgents() {
	s.mu.Lock()
	for i := range s.agents {
		s.agents[i].Status = AgentIdle
		s.agents[i].Load = 0
	}
	agents := append([]AgentState(nil), s.agents...)
	s.mu.Unlock()
	for _, a := range agents {
		s.publish(EventAgent, a)
	}
}

// AddLog records an activity line, keeping the newest maxLogEntries, and mirrors it to the service log.
func (s *Session) AddLog(message string, level LogLevel) {
	entry := LogEntry{Time: time.Now(), Message: message, Level: level}
	s.mu.Lock()
	s.logs = append([]LogEntry{entry}, s.logs...)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[:maxLogEntries]
	}
	s.mu.Unlock()

	if level == LogError || level == LogWarn {
		logging.Warnw(message, "session", s.ID, "level", string(level))
	} else {
		logging.Infow(message, "session", s.ID, "level", string(level))
	}
	s.publish(EventLog, entry)
}

// Logs returns the activity log, newest first.
func (s *Session) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.logs...)
}

func (s *Session) appendMessage(msg store.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.publish(EventMessage, msg)
}

func (s *Session) Messages() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Message(nil), s.messages...)
}

// tryBeginTurn sets the processing flag. It reports false if a turn is already in flight.
func (s *Session) tryBeginTurn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processing {
		return false
	}
	s.processing = true
	s.lastActive = time.Now()
	return true
}

func (s *Session) endTurn() {
	s.mu.Lock()
	s.processing = false
	s.lastActive = time.Now()
	s.mu.Unlock()
}

func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		ID:         s.ID,
		Mode:       s.mode,
		Phase:      s.phase,
		Processing: s.processing,
		Security:   s.security,
		Agents:     append([]AgentState(nil), s.agents...),
		Messages:   append([]store.Message{}, s.messages...),
	}
}

// Subscribe returns a channel of session events and a function that cancels
// the subscription. Slow subscribers drop events rather than stall a turn.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Event, eventBufferSize)
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(kind EventKind, data interface{}) {
	ev := Event{Kind: kind, Time: time.Now(), Data: data}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.processing
}

// SessionManager keeps the live sessions in memory. Nothing is persisted.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (m *SessionManager) Create(mode ReasoningMode) *Session {
	s := newSession(mode)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	s.AddLog("NEXUS Control Surface Initialized", LogKernel)
	return s
}

func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *SessionManager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune drops sessions that have been idle longer than maxIdle. Sessions with
// a turn in flight are kept. It returns the number removed.
func (m *SessionManager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		last, busy := s.idleSince()
		if !busy && last.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}
