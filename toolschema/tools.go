package toolschema

import (
	"encoding/json"
	"reflect"

	"github.com/cockroachdb/errors"
)

// Argument structs for the well-known remote tools. Field requiredness and
// defaults follow the remote catalog; everything else stays open so servers
// can evolve their schemas without a client release.

// CorporateKnowledgeArgs queries the corporate knowledge base.
type CorporateKnowledgeArgs struct {
	Query       string   `json:"query" validate:"required"`
	SystemCodes []string `json:"system_codes" validate:"required"`
	TopK        int      `json:"top_k" jsonschema:"default=5"`
}

// PersonalKnowledgeArgs queries the caller's personal knowledge base.
type PersonalKnowledgeArgs struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"default=5"`
}

// EventsArgs lists calendar events; all filters are optional.
type EventsArgs struct {
	Subject       string `json:"subject,omitempty"`
	StartDateTime string `json:"start_date_time,omitempty"`
	EndDateTime   string `json:"end_date_time,omitempty"`
	Date          string `json:"date,omitempty"`
}

// MailsArgs lists mailbox messages; all filters are optional.
type MailsArgs struct {
	Subject    string `json:"subject,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"default=10"`
}

// SendMailArgs sends a message.
type SendMailArgs struct {
	To      string `json:"to" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

// EmployeeInfosArgs looks up employee directory entries from a free-form
// question.
type EmployeeInfosArgs struct {
	HumanQuestion string `json:"human_question" validate:"required"`
}

// OLAPSearchArgs queries an OLAP cube.
type OLAPSearchArgs struct {
	Query    string `json:"query" validate:"required"`
	CubeName string `json:"cube_name" validate:"required"`
}

// SCMKnowledgeArgs queries the supply-chain knowledge base.
type SCMKnowledgeArgs struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"default=5"`
}

// WebSearchArgs runs a web search.
type WebSearchArgs struct {
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"default=5"`
}

var knownTools = map[string]reflect.Type{
	"retrieve_coporate_knowledge":            reflect.TypeOf(CorporateKnowledgeArgs{}),
	"retrieve_personal_knowledge":            reflect.TypeOf(PersonalKnowledgeArgs{}),
	"get_events":                             reflect.TypeOf(EventsArgs{}),
	"get_mails":                              reflect.TypeOf(MailsArgs{}),
	"send_mail":                              reflect.TypeOf(SendMailArgs{}),
	"get_employee_infos_from_human_question": reflect.TypeOf(EmployeeInfosArgs{}),
	"get_olap_search_data":                   reflect.TypeOf(OLAPSearchArgs{}),
	"retrieve_scm_knowledge":                 reflect.TypeOf(SCMKnowledgeArgs{}),
	"get_web_search_data":                    reflect.TypeOf(WebSearchArgs{}),
}

// Known reports whether the tool has a registered argument schema.
func Known(tool string) bool {
	_, ok := knownTools[tool]
	return ok
}

// KnownTools lists the tools with registered argument schemas.
func KnownTools() []string {
	names := make([]string, 0, len(knownTools))
	for name := range knownTools {
		names = append(names, name)
	}
	return names
}

// For returns the schema registered for the tool, or an error for an unknown
// tool.
func For(tool string) (*Schema, error) {
	t, ok := knownTools[tool]
	if !ok {
		return nil, errors.Errorf("no schema registered for tool: %s", tool)
	}
	return New(t)
}

// NormalizeArgs shapes args to the tool's registered schema. Arguments for
// unknown tools pass through unchanged.
func NormalizeArgs(tool string, args map[string]any) (map[string]any, error) {
	s, err := For(tool)
	if err != nil {
		return args, nil
	}
	out, err := s.Normalize(args)
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %q", tool)
	}
	if err := s.Validate(out); err != nil {
		return nil, errors.WithMessagef(err, "tool %q", tool)
	}
	return out, nil
}

func decodeInto(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return errors.Wrap(err, "failed to encode arguments")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "failed to decode arguments")
	}
	return nil
}
