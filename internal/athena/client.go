// Package athena implements the query backend on Amazon Athena.
package athena

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/ignite/lead-finder/internal/config"
	"github.com/ignite/lead-finder/internal/query"
)

// API is the subset of the Athena client used here.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Client adapts Athena to query.Backend.
type Client struct {
	api       API
	database  string
	workGroup string
}

var _ query.Backend = (*Client)(nil)

// NewClient creates an Athena backend from an SDK config.
func NewClient(awsCfg aws.Config, cfg config.AthenaConfig) *Client {
	return NewClientWithAPI(athena.NewFromConfig(awsCfg), cfg)
}

// NewClientWithAPI creates a backend over an existing API implementation.
func NewClientWithAPI(api API, cfg config.AthenaConfig) *Client {
	return &Client{api: api, database: cfg.Database, workGroup: cfg.WorkGroup}
}

// Submit starts the query and returns its execution id.
func (c *Client) Submit(ctx context.Context, queryText, outputLocation string) (string, error) {
	in := &athena.StartQueryExecutionInput{
		QueryString: aws.String(queryText),
	}
	if outputLocation != "" {
		in.ResultConfiguration = &types.ResultConfiguration{OutputLocation: aws.String(outputLocation)}
	}
	if c.database != "" {
		in.QueryExecutionContext = &types.QueryExecutionContext{Database: aws.String(c.database)}
	}
	if c.workGroup != "" {
		in.WorkGroup = aws.String(c.workGroup)
	}

	out, err := c.api.StartQueryExecution(ctx, in)
	if err != nil {
		return "", fmt.Errorf("start query execution: %w", err)
	}
	id := aws.ToString(out.QueryExecutionId)
	if id == "" {
		return "", errors.New("athena returned no query execution id")
	}
	return id, nil
}

// Status reports the execution state. A missing status is reported as
// FAILED.
func (c *Client) Status(ctx context.Context, queryID string) (query.StatusInfo, error) {
	out, err := c.api.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
		QueryExecutionId: aws.String(queryID),
	})
	if err != nil {
		return query.StatusInfo{}, fmt.Errorf("get query execution: %w", err)
	}
	if out.QueryExecution == nil || out.QueryExecution.Status == nil {
		return query.StatusInfo{State: query.StateFailed, Reason: "no status returned"}, nil
	}
	st := out.QueryExecution.Status
	return query.StatusInfo{
		State:  query.ParseState(string(st.State)),
		Reason: aws.ToString(st.StateChangeReason),
	}, nil
}

// ResultRows returns the first page of results. Lookups use LIMIT 1, so
// one page always holds the header and the data row.
func (c *Client) ResultRows(ctx context.Context, queryID string) ([][]*string, error) {
	out, err := c.api.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(queryID),
	})
	if err != nil {
		return nil, fmt.Errorf("get query results: %w", err)
	}
	if out.ResultSet == nil {
		return nil, nil
	}

	rows := make([][]*string, 0, len(out.ResultSet.Rows))
	for _, r := range out.ResultSet.Rows {
		cells := make([]*string, len(r.Data))
		for i, d := range r.Data {
			cells[i] = d.VarCharValue
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
