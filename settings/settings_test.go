package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"yieldboard/aggregate"
)

var now = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func TestDefault(t *testing.T) {
	s := Default(now)
	assert.Equal(t, "2025-01-09", s.StartDate)
	assert.Equal(t, "2025-01-15", s.EndDate)
	assert.Len(t, s.Widgets, len(WidgetKinds))
	assert.Equal(t, 5*time.Minute, s.PollInterval)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	before := Default(now)
	before.SNFN.Stations = []string{"FLA"}
	snapshot := before.clone()

	after := Reduce(before, ToggleWidget{ID: "snfn"})
	after = Reduce(after, MoveWidget{ID: "pareto", Position: 0})
	after = Reduce(after, SetSNFNOptions{Options: aggregate.SNFNOptions{Stations: []string{"BAT"}}})

	assert.Equal(t, snapshot, before)
	assert.Equal(t, "pareto", after.Widgets[0].ID)
	assert.Equal(t, []string{"BAT"}, after.SNFN.Stations)
	i := after.widget("snfn")
	assert.False(t, after.Widgets[i].Visible)
}

func TestReduceRejectsInvalidActions(t *testing.T) {
	s := Default(now)
	for _, a := range []Action{
		SetDateRange{Start: "2025-02-01", End: "2025-01-01"},
		SetDateRange{Start: "yesterday", End: "2025-01-01"},
		AddWidget{Widget: Widget{ID: "x", Kind: "radar"}},
		AddWidget{Widget: Widget{ID: "snfn", Kind: "snfn"}},
		RemoveWidget{ID: "nope"},
		SetPollInterval{Interval: time.Millisecond},
		SetSNFNOptions{Options: aggregate.SNFNOptions{MaxErrorCodes: -1}},
		SetExtra{},
	} {
		assert.Equal(t, s, Reduce(s, a), "%T", a)
		_, err := a.apply(s.clone())
		assert.ErrorIs(t, err, ErrInvalidAction, "%T", a)
	}
}

func TestMoveWidgetClamps(t *testing.T) {
	s := Reduce(Default(now), MoveWidget{ID: "packing", Position: 99})
	assert.Equal(t, "packing", s.Widgets[len(s.Widgets)-1].ID)
	assert.Len(t, s.Widgets, len(WidgetKinds))
}

func TestParseAction(t *testing.T) {
	s := Default(now)
	cases := map[string]struct {
		key, value string
		check      func(State)
	}{
		"range": {"range", "2025-01-01..2025-01-31", func(n State) {
			assert.Equal(t, "2025-01-01", n.StartDate)
			assert.Equal(t, "2025-01-31", n.EndDate)
		}},
		"poll":     {"poll", "1m", func(n State) { assert.Equal(t, time.Minute, n.PollInterval) }},
		"stations": {"snfn.stations", "FLA, FCT,", func(n State) { assert.Equal(t, []string{"FLA", "FCT"}, n.SNFN.Stations) }},
		"group":    {"snfn.group", "fixture", func(n State) { assert.True(t, n.SNFN.GroupByFixture) }},
		"order":    {"snfn.order", "asc", func(n State) { assert.True(t, n.SNFN.Ascending) }},
		"max":      {"snfn.max", "3", func(n State) { assert.Equal(t, 3, n.SNFN.MaxErrorCodes) }},
		"extra":    {"theme", "dark", func(n State) { assert.Equal(t, "dark", n.Extra["theme"]) }},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			a, err := ParseAction(s, tc.key, tc.value)
			require.NoError(t, err)
			tc.check(Reduce(s, a))
		})
	}

	for _, bad := range [][2]string{{"range", "2025-01-01"}, {"poll", "often"}, {"snfn.sort", "size"}, {"snfn.max", "ten"}} {
		_, err := ParseAction(s, bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidAction, bad[0])
	}
}

func TestStorePersistsOnChangeOnly(t *testing.T) {
	ctx := context.Background()
	p := &MemoryPersister{}
	st, err := Open(ctx, p, nil)
	require.NoError(t, err)

	_, err = st.Dispatch(ctx, SetPollInterval{Interval: time.Minute})
	require.NoError(t, err)
	_, err = st.Dispatch(ctx, SetPollInterval{Interval: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Saves)

	_, err = st.Dispatch(ctx, RemoveWidget{ID: "missing"})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Equal(t, 1, p.Saves)

	reopened, err := Open(ctx, p, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, reopened.State().PollInterval)
}

type failingPersister struct{ MemoryPersister }

func (f *failingPersister) Save(context.Context, State) error { return errors.New("disk full") }

func TestStoreKeepsStateWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, &failingPersister{}, nil)
	require.NoError(t, err)
	before := st.State()

	_, err = st.Dispatch(ctx, SetPollInterval{Interval: time.Hour})
	assert.Error(t, err)
	assert.Equal(t, before, st.State())
}

type SQLitePersisterSuite struct {
	suite.Suite
	db   *sql.DB
	mock sqlmock.Sqlmock
	p    *SQLitePersister
}

func (s *SQLitePersisterSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.mock.ExpectExec("CREATE TABLE IF NOT EXISTS settings").WillReturnResult(sqlmock.NewResult(0, 0))
	s.p, err = NewSQLitePersister(context.Background(), db)
	s.Require().NoError(err)
}

func (s *SQLitePersisterSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *SQLitePersisterSuite) TestLoadEmpty() {
	s.mock.ExpectQuery("SELECT state FROM settings").WillReturnError(sql.ErrNoRows)
	_, err := s.p.Load(context.Background())
	s.ErrorIs(err, ErrNoState)
}

func (s *SQLitePersisterSuite) TestLoadDecodes() {
	want := Default(now)
	data, err := json.Marshal(want)
	s.Require().NoError(err)
	s.mock.ExpectQuery("SELECT state FROM settings").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow(string(data)))

	got, err := s.p.Load(context.Background())
	s.Require().NoError(err)
	s.Equal(want, got)
}

func (s *SQLitePersisterSuite) TestLoadCorrupt() {
	s.mock.ExpectQuery("SELECT state FROM settings").
		WillReturnRows(sqlmock.NewRows([]string{"state"}).AddRow("{not json"))
	_, err := s.p.Load(context.Background())
	s.Error(err)
	s.NotErrorIs(err, ErrNoState)
}

func (s *SQLitePersisterSuite) TestSaveUpserts() {
	s.mock.ExpectExec("INSERT INTO settings").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.NoError(s.p.Save(context.Background(), Default(now)))
}

func (s *SQLitePersisterSuite) TestStoreWritesThrough() {
	s.mock.ExpectQuery("SELECT state FROM settings").WillReturnError(sql.ErrNoRows)
	s.mock.ExpectExec("INSERT INTO settings").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	st, err := Open(context.Background(), s.p, nil)
	s.Require().NoError(err)
	next, err := st.Dispatch(context.Background(), SetDateRange{Start: "2025-01-01", End: "2025-01-02"})
	s.Require().NoError(err)
	s.Equal("2025-01-02", next.EndDate)
}

func TestSQLitePersisterSuite(t *testing.T) {
	suite.Run(t, new(SQLitePersisterSuite))
}
