package gentask

import "time"

// TimeProvider is the clock used when a task adds the current date and time to its
// instructions. Inject a MockTimeProvider to make prompts reproducible in tests.
type TimeProvider interface {
	// Now returns the current time.
	Now() time.Time

	// Format returns the current time formatted with the given layout.
	Format(layout string) string
}

// DateTimeLayout is the layout of the datetime instruction line.
const DateTimeLayout = "2006-01-02 15:04:05.000000"

// DefaultTimeProvider reads the system clock.
type DefaultTimeProvider struct{}

// NewDefaultTimeProvider creates a new DefaultTimeProvider.
func NewDefaultTimeProvider() *DefaultTimeProvider {
	return &DefaultTimeProvider{}
}

func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now()
}

func (p *DefaultTimeProvider) Format(layout string) string {
	return p.Now().Format(layout)
}

// MockTimeProvider is a TimeProvider that returns a fixed time.
type MockTimeProvider struct {
	fixedTime time.Time
}

// NewMockTimeProvider creates a MockTimeProvider with the given fixed time.
func NewMockTimeProvider(t time.Time) *MockTimeProvider {
	return &MockTimeProvider{fixedTime: t}
}

// SetTime updates the fixed time returned by Now().
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.fixedTime = t
}

func (m *MockTimeProvider) Now() time.Time {
	return m.fixedTime
}

func (m *MockTimeProvider) Format(layout string) string {
	return m.fixedTime.Format(layout)
}

var (
	_ TimeProvider = (*DefaultTimeProvider)(nil)
	_ TimeProvider = (*MockTimeProvider)(nil)
)
