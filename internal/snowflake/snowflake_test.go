package snowflake

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/query"
)

func TestParseConnectionString(t *testing.T) {
	connStr := "scheme=https;ACCOUNT=HZDABLB-WLB56571;HOST=HZDABLB-WLB56571.azure.snowflakecomputing.com;port=443;USER=testuser;PASSWORD=testpass;DB=LEADS_LAKE.PEOPLE;"

	cfg := ParseConnectionString(connStr)

	assert.Equal(t, "HZDABLB-WLB56571", cfg.Account)
	assert.Equal(t, "testuser", cfg.User)
	assert.Equal(t, "testpass", cfg.Password)
	assert.Equal(t, "LEADS_LAKE", cfg.Database)
	assert.Equal(t, "PEOPLE", cfg.Schema)
}

func TestParseConnectionStringNoTrailingSemicolon(t *testing.T) {
	cfg := ParseConnectionString("ACCOUNT=test;USER=user;PASSWORD=pass;DB=mydb")

	assert.Equal(t, "test", cfg.Account)
	assert.Equal(t, "mydb", cfg.Database)
	assert.Empty(t, cfg.Schema)
}

func TestResolve_ExplicitFieldsWin(t *testing.T) {
	cfg := Resolve(config.SnowflakeConfig{
		User:             "override",
		ConnectionString: "ACCOUNT=acct;USER=u;PASSWORD=p;DB=db.s",
	})
	assert.Equal(t, "acct", cfg.Account)
	assert.Equal(t, "override", cfg.User)
	assert.Equal(t, "s", cfg.Schema)
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.SnowflakeConfig{Account: "acct", User: "u", Password: "p", Database: "db", Schema: "s", Warehouse: "wh"})
	assert.Equal(t, "u:p@acct/db/s?warehouse=wh", dsn)
}

func waitTerminal(t *testing.T, c *Client, id string) query.StatusInfo {
	t.Helper()
	var st query.StatusInfo
	require.Eventually(t, func() bool {
		got, err := c.Status(context.Background(), id)
		if err != nil {
			return false
		}
		st = got
		return got.State.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func tracked(c *Client) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.execs)
}

func TestClient_SubmitPollFetch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT BUSINESS_EMAIL, PERSONAL_EMAILS")).
		WillReturnRows(sqlmock.NewRows([]string{"BUSINESS_EMAIL", "PERSONAL_EMAILS"}).
			AddRow("jane.doe@acme.com", nil))

	c := NewClientWithDB(db)
	id, err := c.Submit(context.Background(), "SELECT BUSINESS_EMAIL, PERSONAL_EMAILS FROM my_table LIMIT 1", "")
	require.NoError(t, err)

	st := waitTerminal(t, c, id)
	assert.Equal(t, query.StateSucceeded, st.State)

	rows, err := c.ResultRows(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "BUSINESS_EMAIL", *rows[0][0])
	assert.Equal(t, "jane.doe@acme.com", *rows[1][0])
	assert.Nil(t, rows[1][1])
	assert.Equal(t, 0, tracked(c), "fetched executions are forgotten")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_FailedStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("SQL compilation error"))

	c := NewClientWithDB(db)
	id, err := c.Submit(context.Background(), "SELECT 1", "")
	require.NoError(t, err)

	st := waitTerminal(t, c, id)
	assert.Equal(t, query.StateFailed, st.State)
	assert.Contains(t, st.Reason, "SQL compilation error")

	_, err = c.ResultRows(context.Background(), id)
	assert.Error(t, err)
}

func TestClient_UnknownID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewClientWithDB(db)
	_, err = c.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownQuery)
}

func TestClient_SweepDropsStaleExecutions(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := NewClientWithDB(db)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.execs["old"] = &execution{state: query.StateSucceeded, finished: now.Add(-time.Hour)}
	c.execs["running"] = &execution{state: query.StateRunning}

	c.mu.Lock()
	c.sweepLocked()
	c.mu.Unlock()

	assert.Equal(t, 1, tracked(c))
}
