package sla

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/graphql"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/paginate"
	"github.com/rynardtspies/rubrik-rsc-sample-scripts/internal/workflow"
)

// StepListDomains is the name of the only step of the SLA workflow.
const StepListDomains = "list-sla-domains"

// WorkflowName identifies SLA listing runs in logs, metrics and the audit trail.
const WorkflowName = "sla-list"

const basicScheduleFields = `basicSchedule {
          frequency
          retention
          retentionUnit
        }`

var querySLADomains = fmt.Sprintf(`query GetSlaDomains($after: String) {
  slaDomains(after: $after) {
    pageInfo {
      startCursor
      endCursor
      hasPreviousPage
      hasNextPage
    }
    count
    edges {
      node {
        ... on GlobalSlaReply {
          name
          id
          snapshotSchedule {
            hourly { %[1]s }
            daily { %[1]s }
            weekly { %[1]s }
            monthly { %[1]s }
            yearly { %[1]s }
          }
        }
      }
    }
  }
}`, basicScheduleFields)

// Manager reads SLA domains through an authenticated client.
type Manager struct {
	client graphql.Client
	opts   []paginate.Option
}

// NewManager returns a Manager. opts are passed to every paginated query.
func NewManager(client graphql.Client, opts ...paginate.Option) *Manager {
	return &Manager{client: client, opts: opts}
}

// List returns every SLA domain in server order.
func (m *Manager) List(ctx context.Context) ([]Domain, error) {
	domains, err := paginate.CollectAll(ctx, m.client, buildQuery, extractPage, m.opts...)
	if err != nil {
		return nil, fmt.Errorf("list SLA domains: %w", err)
	}
	return domains, nil
}

// buildQuery omits variables entirely for the first page.
func buildQuery(cursor *string) (string, map[string]any) {
	if cursor == nil {
		return querySLADomains, nil
	}
	return querySLADomains, map[string]any{"after": *cursor}
}

func extractPage(data []byte) (paginate.Page[Domain], error) {
	var resp slaDomainsData
	if err := json.Unmarshal(data, &resp); err != nil {
		return paginate.Page[Domain]{}, fmt.Errorf("decode slaDomains: %w", err)
	}
	conn := resp.SLADomains
	page := paginate.Page[Domain]{
		Items:      make([]Domain, 0, len(conn.Edges)),
		NextCursor: conn.PageInfo.EndCursor,
		HasMore:    conn.PageInfo.HasNextPage,
	}
	for _, e := range conn.Edges {
		page.Items = append(page.Items, e.Node)
	}
	return page, nil
}

// ListStep returns the workflow step that collects all SLA domains into the
// "domains" output.
func ListStep(opts ...paginate.Option) workflow.Step {
	return workflow.Step{
		Name: StepListDomains,
		Execute: func(ctx context.Context, client graphql.Client, _ workflow.Outputs) workflow.Result {
			domains, err := NewManager(client, opts...).List(ctx)
			if err != nil {
				return workflow.Fail(err)
			}
			return workflow.Success(map[string]any{"domains": domains})
		},
	}
}

// DomainsFrom returns the domains recorded by ListStep in state.
func DomainsFrom(state *workflow.State) []Domain {
	if state == nil {
		return nil
	}
	domains, _ := state.Output(StepListDomains)["domains"].([]Domain)
	return domains
}
