package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ClubSettings describes one club's simulator bays and booking policy.
type ClubSettings struct {
	ClubID                 string   `yaml:"club_id"`
	Name                   string   `yaml:"name"`
	NumberOfBays           int      `yaml:"number_of_bays"`
	OpeningTime            string   `yaml:"opening_time"` // "07:00"
	ClosingTime            string   `yaml:"closing_time"` // "22:00"
	DaysOfOperation        []string `yaml:"days_of_operation"`
	BookingDurationOptions []int    `yaml:"booking_duration_options"` // minutes
	MinBookingDuration     int      `yaml:"min_booking_duration"`     // minutes
	MaxBookingDuration     int      `yaml:"max_booking_duration"`     // minutes
	MaxAdvanceBookingDays  int      `yaml:"max_advance_booking_days"`
	SlotDurationMinutes    int      `yaml:"slot_duration_minutes"`
	Enabled                bool     `yaml:"enabled"`
}

// ClubsConfig is the root configuration for clubs.yaml.
type ClubsConfig struct {
	Clubs []ClubSettings `yaml:"clubs"`
}

var weekdayNames = map[string]time.Weekday{
	"Sun": time.Sunday,
	"Mon": time.Monday,
	"Tue": time.Tuesday,
	"Wed": time.Wednesday,
	"Thu": time.Thursday,
	"Fri": time.Friday,
	"Sat": time.Saturday,
}

// LoadClubsConfig loads and validates club configuration from a YAML file.
func LoadClubsConfig(path string) (*ClubsConfig, error) {
	if path == "" {
		path = "configs/clubs.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read clubs config: %w", err)
	}

	var cfg ClubsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse clubs config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate clubs config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for errors.
func (c *ClubsConfig) Validate() error {
	if len(c.Clubs) == 0 {
		return fmt.Errorf("no clubs defined")
	}

	ids := make(map[string]bool)
	for i, club := range c.Clubs {
		if club.ClubID == "" {
			return fmt.Errorf("club[%d]: club_id is required", i)
		}
		if ids[club.ClubID] {
			return fmt.Errorf("club[%d]: duplicate club_id '%s'", i, club.ClubID)
		}
		ids[club.ClubID] = true

		if club.NumberOfBays <= 0 {
			return fmt.Errorf("club[%d]: number_of_bays must be positive, got %d", i, club.NumberOfBays)
		}

		opening, err := time.Parse("15:04", club.OpeningTime)
		if err != nil {
			return fmt.Errorf("club[%d].opening_time: invalid format '%s', expected HH:MM", i, club.OpeningTime)
		}
		closing, err := time.Parse("15:04", club.ClosingTime)
		if err != nil {
			return fmt.Errorf("club[%d].closing_time: invalid format '%s', expected HH:MM", i, club.ClosingTime)
		}
		if !closing.After(opening) {
			return fmt.Errorf("club[%d]: closing_time must be after opening_time", i)
		}

		for _, day := range club.DaysOfOperation {
			if _, ok := weekdayNames[day]; !ok {
				return fmt.Errorf("club[%d]: invalid day '%s', expected Mon..Sun", i, day)
			}
		}

		if club.MinBookingDuration <= 0 {
			return fmt.Errorf("club[%d]: min_booking_duration must be positive", i)
		}
		if club.MaxBookingDuration < club.MinBookingDuration {
			return fmt.Errorf("club[%d]: max_booking_duration must be >= min_booking_duration", i)
		}
		for _, opt := range club.BookingDurationOptions {
			if opt < club.MinBookingDuration || opt > club.MaxBookingDuration {
				return fmt.Errorf("club[%d]: duration option %d outside [%d, %d]",
					i, opt, club.MinBookingDuration, club.MaxBookingDuration)
			}
		}
		if club.MaxAdvanceBookingDays <= 0 {
			return fmt.Errorf("club[%d]: max_advance_booking_days must be positive", i)
		}
		if club.SlotDurationMinutes <= 0 {
			return fmt.Errorf("club[%d]: slot_duration_minutes must be positive", i)
		}
	}

	return nil
}

func (c *ClubsConfig) applyDefaults() {
	for i := range c.Clubs {
		club := &c.Clubs[i]
		if club.NumberOfBays == 0 {
			club.NumberOfBays = 4
		}
		if club.OpeningTime == "" {
			club.OpeningTime = "07:00"
		}
		if club.ClosingTime == "" {
			club.ClosingTime = "22:00"
		}
		if len(club.DaysOfOperation) == 0 {
			club.DaysOfOperation = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
		}
		if club.MinBookingDuration == 0 {
			club.MinBookingDuration = 30
		}
		if club.MaxBookingDuration == 0 {
			club.MaxBookingDuration = 240
		}
		if len(club.BookingDurationOptions) == 0 {
			club.BookingDurationOptions = []int{30, 60, 90, 120}
		}
		if club.MaxAdvanceBookingDays == 0 {
			club.MaxAdvanceBookingDays = 30
		}
		if club.SlotDurationMinutes == 0 {
			club.SlotDurationMinutes = 30
		}
		sort.Ints(club.BookingDurationOptions)
	}
}

// Club returns the settings for the given club id.
func (c *ClubsConfig) Club(id string) *ClubSettings {
	for i := range c.Clubs {
		if c.Clubs[i].ClubID == id {
			return &c.Clubs[i]
		}
	}
	return nil
}

// OpensAt returns the opening instant for the given calendar day.
func (s *ClubSettings) OpensAt(date time.Time) time.Time {
	return anchorClock(date, s.OpeningTime)
}

// ClosesAt returns the closing instant for the given calendar day.
func (s *ClubSettings) ClosesAt(date time.Time) time.Time {
	return anchorClock(date, s.ClosingTime)
}

// OperatesOn reports whether the club is open on the given weekday.
func (s *ClubSettings) OperatesOn(day time.Weekday) bool {
	for _, name := range s.DaysOfOperation {
		if weekdayNames[name] == day {
			return true
		}
	}
	return false
}

// MinDuration returns the shortest allowed session.
func (s *ClubSettings) MinDuration() time.Duration {
	return time.Duration(s.MinBookingDuration) * time.Minute
}

// MaxDuration returns the longest allowed session.
func (s *ClubSettings) MaxDuration() time.Duration {
	return time.Duration(s.MaxBookingDuration) * time.Minute
}

// SlotDuration returns the availability grid step.
func (s *ClubSettings) SlotDuration() time.Duration {
	return time.Duration(s.SlotDurationMinutes) * time.Minute
}

// DaysOfOperationString renders the operating days as a comma list.
func (s *ClubSettings) DaysOfOperationString() string {
	return strings.Join(s.DaysOfOperation, ",")
}

// anchorClock combines a calendar day with an HH:MM clock value. The
// clock value is assumed to be pre-validated.
func anchorClock(date time.Time, clock string) time.Time {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return date
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Hour(), parsed.Minute(), 0, 0, date.Location())
}

// ClubRegistry holds the current club configuration and supports hot
// reload. Readers always see a complete config.
type ClubRegistry struct {
	mu  sync.RWMutex
	cfg *ClubsConfig
}

// NewClubRegistry constructs a registry seeded with the given config.
func NewClubRegistry(cfg *ClubsConfig) *ClubRegistry {
	return &ClubRegistry{cfg: cfg}
}

// Update swaps in a new configuration.
func (r *ClubRegistry) Update(cfg *ClubsConfig) {
	if cfg == nil {
		return
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// Get returns a copy of the settings for the given club.
func (r *ClubRegistry) Get(clubID string) (ClubSettings, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return ClubSettings{}, false
	}
	club := r.cfg.Club(clubID)
	if club == nil {
		return ClubSettings{}, false
	}
	return *club, true
}
