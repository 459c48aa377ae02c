// Package seed creates demo users and tracks for development databases.
// Data goes through the repositories so it obeys the same rules as the API.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"vista/internal/models"
	"vista/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// Options controls the size and shape of generated demo data.
type Options struct {
	Users         int
	TracksPerUser int
	// PublicRatio is the share of generated tracks that are public, 0..1.
	PublicRatio float64
	// RandSeed makes generation reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions returns the options used by cmd/seed when no flags are set.
func DefaultOptions() Options {
	return Options{Users: 10, TracksPerUser: 3, PublicRatio: 0.5}
}

// Result summarizes what a seeding run wrote.
type Result struct {
	Users  int
	Tracks int
}

// Fixture is a hand-written data set loaded from YAML.
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser is a user and the tracks they own.
type FixtureUser struct {
	ID     string         `yaml:"id"`
	Email  string         `yaml:"email"`
	Name   string         `yaml:"name"`
	Avatar string         `yaml:"avatar"`
	Tracks []FixtureTrack `yaml:"tracks"`
}

// FixtureTrack is a track entry of a fixture file.
type FixtureTrack struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Public      bool             `yaml:"public"`
	Articles    []FixtureArticle `yaml:"articles"`
}

// FixtureArticle is an article reference entry of a fixture file.
type FixtureArticle struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	Completed   bool   `yaml:"completed"`
}

// Seeder writes demo data through the repositories.
type Seeder struct {
	db     *gorm.DB
	users  repository.UserRepository
	tracks repository.TrackRepository
	log    *slog.Logger
	now    func() time.Time
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, log *slog.Logger) *Seeder {
	opLog := repository.NewOpLogger(log)
	return &Seeder{
		db:     db,
		users:  repository.NewUserRepository(db, opLog),
		tracks: repository.NewTrackRepository(db, opLog),
		log:    log,
		now:    time.Now,
	}
}

// Clean removes all tracks and users.
func (s *Seeder) Clean(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Track{}).Error; err != nil {
			return fmt.Errorf("clear tracks: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

// Demo generates opts.Users random users with opts.TracksPerUser tracks each.
func (s *Seeder) Demo(ctx context.Context, opts Options) (*Result, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)

	res := &Result{}
	for range opts.Users {
		first, last := faker.FirstName(), faker.LastName()
		name := first + " " + last
		avatar := "https://i.pravatar.cc/150?u=" + faker.UUID()
		user := &models.User{
			ID:        faker.UUID(),
			Email:     strings.ToLower(first+"."+last) + "@" + faker.DomainName(),
			Name:      &name,
			AvatarURL: &avatar,
		}
		// Some users only have an email, as with providers that send no name.
		if faker.Number(0, 3) == 0 {
			user.Name = nil
		}
		if err := s.ensureUser(ctx, user); err != nil {
			return res, err
		}
		res.Users++

		for range opts.TracksPerUser {
			track := demoTrack(faker, user.ID, faker.Float64Range(0, 1) < opts.PublicRatio)
			if err := s.createTrack(ctx, track); err != nil {
				return res, err
			}
			res.Tracks++
		}
	}

	s.log.InfoContext(ctx, "Demo data seeded", slog.Int("users", res.Users), slog.Int("tracks", res.Tracks))
	return res, nil
}

func demoTrack(faker *gofakeit.Faker, userID string, public bool) *models.Track {
	city := faker.City()
	description := faker.Sentence(12)
	articles := make([]models.ArticleReference, faker.Number(1, 6))
	for i := range articles {
		topic := faker.HipsterWord()
		articles[i] = models.ArticleReference{
			Title:     strings.ToUpper(topic[:1]) + topic[1:] + " in " + city,
			URL:       faker.URL(),
			Completed: faker.Bool(),
		}
	}
	return &models.Track{
		UserID:      userID,
		Title:       city,
		Description: &description,
		IsPublic:    public,
		Articles:    articles,
	}
}

// ParseFixture decodes a YAML fixture and checks it for missing fields.
func ParseFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, u := range f.Users {
		if u.ID == "" || u.Email == "" {
			return nil, fmt.Errorf("fixture user %d: id and email are required", i)
		}
		for j, t := range u.Tracks {
			if strings.TrimSpace(t.Title) == "" {
				return nil, fmt.Errorf("fixture user %s track %d: title is required", u.ID, j)
			}
			for k, a := range t.Articles {
				if a.Title == "" || a.URL == "" {
					return nil, fmt.Errorf("fixture user %s track %d article %d: title and url are required", u.ID, j, k)
				}
			}
		}
	}
	return &f, nil
}

// LoadFixture writes every user and track of f. Users that already exist are
// left untouched; their fixture tracks are still added.
func (s *Seeder) LoadFixture(ctx context.Context, f *Fixture) (*Result, error) {
	res := &Result{}
	for _, fu := range f.Users {
		user := &models.User{ID: fu.ID, Email: fu.Email, Name: optional(fu.Name), AvatarURL: optional(fu.Avatar)}
		if err := s.ensureUser(ctx, user); err != nil {
			return res, err
		}
		res.Users++

		for _, ft := range fu.Tracks {
			articles := make([]models.ArticleReference, 0, len(ft.Articles))
			for _, a := range ft.Articles {
				articles = append(articles, models.ArticleReference{
					Title:       a.Title,
					URL:         a.URL,
					Description: optional(a.Description),
					Completed:   a.Completed,
				})
			}
			track := &models.Track{
				UserID:      fu.ID,
				Title:       strings.TrimSpace(ft.Title),
				Description: optional(ft.Description),
				IsPublic:    ft.Public,
				Articles:    articles,
			}
			if err := s.createTrack(ctx, track); err != nil {
				return res, err
			}
			res.Tracks++
		}
	}

	s.log.InfoContext(ctx, "Fixture loaded", slog.Int("users", res.Users), slog.Int("tracks", res.Tracks))
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, user *models.User) error {
	_, err := s.users.GetByID(ctx, user.ID)
	if err == nil {
		return nil
	}
	if !models.IsNotFound(err) {
		return err
	}
	now := s.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	return s.users.Create(ctx, user)
}

func (s *Seeder) createTrack(ctx context.Context, track *models.Track) error {
	now := s.now().UTC()
	track.CreatedAt, track.UpdatedAt = now, now
	return s.tracks.Create(ctx, track)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
