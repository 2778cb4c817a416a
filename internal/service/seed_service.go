package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/phonebook/internal/domain"
)

var (
	seedFirstNames = []string{
		"James", "Mary", "John", "Patricia", "Robert", "Jennifer", "Michael", "Linda",
		"William", "Elizabeth", "David", "Barbara", "Richard", "Susan", "Joseph", "Jessica",
		"Thomas", "Sarah", "Charles", "Karen", "Christopher", "Nancy", "Daniel", "Lisa",
		"Matthew", "Margaret", "Anthony", "Betty", "Mark", "Sandra",
	}
	seedLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
		"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
		"Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson",
		"White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
	}
)

// SeedService fills the store with a demo owner and random contacts. All
// writes go through the facade.
type SeedService struct {
	phonebook *PhonebookService
	rand      *rand.Rand
	logger    zerolog.Logger
}

// NewSeedService creates a seeder. A nil rng uses a randomly seeded source.
func NewSeedService(phonebook *PhonebookService, rng *rand.Rand, logger zerolog.Logger) *SeedService {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &SeedService{
		phonebook: phonebook,
		rand:      rng,
		logger:    logger.With().Str("service", "seed").Logger(),
	}
}

// SeedInput describes the demo account.
type SeedInput struct {
	Name      string
	Surname   string
	LoginName string
	Password  string
	Contacts  int
}

// DefaultSeedInput returns the demo account used by the seed command.
func DefaultSeedInput() SeedInput {
	return SeedInput{
		Name:      "Michele",
		Surname:   "Leuti",
		LoginName: "UserTest",
		Password:  "Password123!",
		Contacts:  100,
	}
}

// SeedOutput contains the result of a seed run.
type SeedOutput struct {
	Session *Session

	// OwnerCreated is false when the demo owner already existed.
	OwnerCreated bool

	// ContactsAdded is the number of contacts written by this run.
	ContactsAdded int
}

// Seed creates the demo owner, or logs into it when it already exists, and
// adds input.Contacts random contacts.
func (s *SeedService) Seed(ctx context.Context, input SeedInput) (*SeedOutput, error) {
	out := &SeedOutput{OwnerCreated: true}

	session, err := s.phonebook.SignUp(ctx, input.Name, input.Surname, input.LoginName, input.Password)
	if errors.Is(err, domain.ErrDuplicateLoginName) {
		out.OwnerCreated = false
		session, err = s.phonebook.Login(ctx, input.LoginName, input.Password)
	}
	if err != nil {
		return nil, fmt.Errorf("seed owner %q: %w", input.LoginName, err)
	}
	out.Session = session

	ownerID := session.Owner().ID()
	for i := 0; i < input.Contacts; i++ {
		contact, err := s.randomContact(ownerID)
		if err != nil {
			return out, err
		}
		if err := s.phonebook.AddContact(ctx, session, contact); err != nil {
			return out, fmt.Errorf("seed contact %d: %w", i+1, err)
		}
		out.ContactsAdded++
	}

	s.logger.Info().
		Str("login_name", input.LoginName).
		Bool("owner_created", out.OwnerCreated).
		Int("contacts_added", out.ContactsAdded).
		Msg("seed complete")
	return out, nil
}

func (s *SeedService) randomContact(ownerID uuid.UUID) (*domain.Contact, error) {
	r := s.rand
	return domain.NewContact(
		ownerID,
		seedFirstNames[r.IntN(len(seedFirstNames))],
		seedLastNames[r.IntN(len(seedLastNames))],
		fmt.Sprintf("Random Address %d", r.IntN(900)+100),
		fmt.Sprintf("%03d-%03d-%04d", r.IntN(1000), r.IntN(1000), r.IntN(10000)),
		r.IntN(60)+20,
	)
}
