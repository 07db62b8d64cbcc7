package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-bot/internal/config"
	"github.com/tartampluch/birthday-bot/internal/engine"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockSource simulates the spreadsheet using `testify/mock`.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Rows(ctx context.Context) ([][]string, error) {
	args := m.Called(ctx)
	if r := args.Get(0); r != nil {
		return r.([][]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDispatcher records outgoing messages.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) SendMessage(ctx context.Context, chatID, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

var testRoster = [][]string{
	{"name", "date", "wishlist"},
	{"Alice", "1990-06-08", "Books"},
	{"Bob", "1985-06-01", ""},
	{"Carol", "2000-06-04", "Plants"},
	{"Dan", "1970-01-01", ""},
}

func newNotifier(src engine.RosterSource, d engine.Dispatcher) *engine.Notifier {
	kyiv, _ := time.LoadLocation("Europe/Kyiv")
	return &engine.Notifier{
		// 08:59 Kyiv time on June 1st.
		Clock:      engine.FixedClock(time.Date(2024, 6, 1, 5, 59, 0, 0, time.UTC)),
		Location:   kyiv,
		Source:     src,
		Dispatcher: d,
		ChatID:     "-100",
		Render: func(rec engine.BirthdayRecord, occ engine.Occurrence) string {
			return rec.Name + "/" + occ.Tier.String()
		},
	}
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRunDailyCheck_DispatchesInRosterOrder(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return(testRoster, nil)

	d := new(MockDispatcher)
	var order []string
	d.On("SendMessage", mock.Anything, "-100", mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(2)) }).
		Return(nil)

	got, err := newNotifier(src, d).RunDailyCheck(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Alice/seven_days", "Bob/zero_days", "Carol/three_days"}, order)
	assert.Equal(t, 39, got[1].Occurrence.AgeReached)
	for _, n := range got {
		assert.NoError(t, n.Err)
	}
	d.AssertNumberOfCalls(t, "SendMessage", 3)
	src.AssertExpectations(t)
}

func TestRunDailyCheck_ContinuesAfterDispatchError(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return(testRoster, nil)

	sendErr := errors.New("chat not found")
	d := new(MockDispatcher)
	d.On("SendMessage", mock.Anything, "-100", "Alice/seven_days").Return(sendErr).Once()
	d.On("SendMessage", mock.Anything, "-100", "Bob/zero_days").Return(nil).Once()
	d.On("SendMessage", mock.Anything, "-100", "Carol/three_days").Return(nil).Once()

	got, err := newNotifier(src, d).RunDailyCheck(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, sendErr)
	assert.ErrorIs(t, err, engine.ErrPartialDispatch)
	assert.Contains(t, err.Error(), config.ErrDailyCheckPartial)
	require.Len(t, got, 3)
	assert.ErrorIs(t, got[0].Err, sendErr)
	assert.NoError(t, got[1].Err)
	assert.NoError(t, got[2].Err)
	d.AssertExpectations(t)
}

func TestRunDailyCheck_SourceErrorAborts(t *testing.T) {
	srcErr := errors.New("403 permission denied")
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return(nil, srcErr)

	d := new(MockDispatcher)

	got, err := newNotifier(src, d).RunDailyCheck(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, srcErr)
	assert.Contains(t, err.Error(), config.ErrRosterFetch)
	assert.NotErrorIs(t, err, engine.ErrPartialDispatch)
	assert.Nil(t, got)
	d.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunDailyCheck_HeaderOnly(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return([][]string{{"name", "date", "wishlist"}}, nil)
	d := new(MockDispatcher)

	got, err := newNotifier(src, d).RunDailyCheck(context.Background())

	require.NoError(t, err)
	assert.Empty(t, got)
	d.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunDailyCheck_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := new(MockSource)
	src.On("Rows", mock.Anything).Return(nil, errors.New("request aborted"))

	_, err := newNotifier(src, new(MockDispatcher)).RunDailyCheck(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestUpcoming(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return(testRoster, nil)

	n := newNotifier(src, new(MockDispatcher))
	got, err := n.Upcoming(context.Background(), engine.DefaultTopN)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Bob", got[0].Record.Name)
	assert.Equal(t, "Carol", got[1].Record.Name)
	assert.Equal(t, "Alice", got[2].Record.Name)
}

func TestUpcoming_EmptyRoster(t *testing.T) {
	src := new(MockSource)
	src.On("Rows", mock.Anything).Return([][]string{{"name", "date", "wishlist"}}, nil)

	got, err := newNotifier(src, new(MockDispatcher)).Upcoming(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}
