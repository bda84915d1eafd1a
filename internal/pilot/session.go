package pilot

import (
	"errors"
	"fmt"

	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/datasync"
	"github.com/deepstreamIO/ds-demo-spaceshooter/internal/game"
)

var (
	// ErrNoName is returned when joining without a player name.
	ErrNoName = errors.New("pilot: empty player name")
	// ErrJoined is returned when joining a session that is already in the game.
	ErrJoined = errors.New("pilot: already joined")
)

// Announce selects how a session tells the arena it is online.
type Announce struct {
	Presence bool // subscribe status/<name>
	List     bool // add <name> to the players list
}

// AnnounceFor maps a membership kind to the announcements a pilot makes.
// "both" keeps a pilot visible to arenas configured either way.
func AnnounceFor(kind string) (Announce, error) {
	switch kind {
	case "", "presence":
		return Announce{Presence: true}, nil
	case "list":
		return Announce{List: true}, nil
	case "both":
		return Announce{Presence: true, List: true}, nil
	}
	return Announce{}, fmt.Errorf("pilot: unknown membership %q", kind)
}

// Session is one player's connection to the game: it owns the control record
// and binds it to both pads. Deletion of the record by the arena is the game
// over signal.
type Session struct {
	client   datasync.Client
	announce Announce

	Move *Pad
	Aim  *Pad

	name       string
	record     datasync.Record
	joined     bool
	gameOver   bool
	onGameOver func()
}

// NewSession creates a session on c with two unbound pads.
func NewSession(c datasync.Client, a Announce) *Session {
	if !a.Presence && !a.List {
		a.Presence = true
	}
	return &Session{
		client:   c,
		announce: a,
		Move:     NewPad(MovePad),
		Aim:      NewPad(AimPad),
	}
}

func (s *Session) Name() string         { return s.name }
func (s *Session) Joined() bool         { return s.joined }
func (s *Session) GameOver() bool       { return s.gameOver }
func (s *Session) Announce() Announce   { return s.announce }
func (s *Session) OnGameOver(fn func()) { s.onGameOver = fn }

// Join enters the game as name: the control record is (re)created with idle
// controls, the pilot announces itself, and both pads start writing.
func (s *Session) Join(name string) error {
	if name == "" {
		return ErrNoName
	}
	if s.joined {
		return ErrJoined
	}
	rec := s.client.Record(game.PlayerRecord(name))
	if err := rec.SetAll(game.ControlState{}.Fields(name)); err != nil {
		return fmt.Errorf("join %s: %w", name, err)
	}
	rec.OnDelete(func() { s.handleDeleted(rec) })
	if s.announce.Presence {
		if err := s.client.Events().Subscribe(game.StatusEvent(name)); err != nil {
			return fmt.Errorf("join %s: %w", name, err)
		}
	}
	if s.announce.List {
		if err := s.client.List(game.PlayersList).AddEntry(name); err != nil {
			return fmt.Errorf("join %s: %w", name, err)
		}
	}

	s.name = name
	s.record = rec
	s.joined = true
	s.gameOver = false
	s.Move.SetRecord(rec)
	s.Aim.SetRecord(rec)
	return nil
}

// Rejoin enters the game again under the previous name after a game over.
func (s *Session) Rejoin() error {
	return s.Join(s.name)
}

// Leave withdraws from the game without waiting for the arena. The arena
// deletes the record once it sees the pilot go offline.
func (s *Session) Leave() error {
	if !s.joined {
		return nil
	}
	s.unbind()
	s.record.Discard()
	return s.withdraw()
}

func (s *Session) handleDeleted(rec datasync.Record) {
	if rec != s.record || !s.joined {
		return
	}
	s.unbind()
	_ = s.withdraw()
	s.gameOver = true
	if s.onGameOver != nil {
		s.onGameOver()
	}
}

func (s *Session) unbind() {
	s.joined = false
	s.Move.SetRecord(nil)
	s.Aim.SetRecord(nil)
	s.Move.pressed = false
	s.Aim.pressed = false
}

// withdraw undoes the announcements made by Join.
func (s *Session) withdraw() error {
	var errs []error
	if s.announce.Presence {
		errs = append(errs, s.client.Events().Unsubscribe(game.StatusEvent(s.name)))
	}
	if s.announce.List {
		errs = append(errs, s.client.List(game.PlayersList).RemoveEntry(s.name))
	}
	return errors.Join(errs...)
}
