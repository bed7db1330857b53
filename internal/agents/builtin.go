package agents

import (
	"context"

	"learnloop/internal/domain"
	"learnloop/internal/plugin"
	"learnloop/internal/plugin/action"
	"learnloop/internal/plugin/data"
	"learnloop/internal/plugin/email"
	"learnloop/internal/plugin/llm"
	"learnloop/internal/plugin/retrieval"
)

// TutorChat answers student questions through the chat provider.
type TutorChat struct {
	plugins *plugin.Registry
}

var _ domain.AgentHandler = (*TutorChat)(nil)

func NewTutorChat(plugins *plugin.Registry) *TutorChat {
	return &TutorChat{plugins: plugins}
}

func (a *TutorChat) Execute(ctx context.Context, task *domain.AgentTask) (*domain.AgentResult, error) {
	if task.Type != TaskChatComplete {
		return unknownTask(task.Type)
	}
	svc, err := plugin.As[llm.Service](ctx, a.plugins, llm.PluginName)
	if err != nil {
		return nil, err
	}
	req, err := decodePayload[llm.Request](task.Payload)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return succeed(resp, resp.Mocked)
}

func (a *TutorChat) Health(ctx context.Context) domain.HealthStatus {
	return pluginHealth(ctx, a.plugins, llm.PluginName)
}

// Notifier raises operational actions, such as Slack notifications to
// course staff.
type Notifier struct {
	plugins *plugin.Registry
}

var _ domain.AgentHandler = (*Notifier)(nil)

func NewNotifier(plugins *plugin.Registry) *Notifier {
	return &Notifier{plugins: plugins}
}

func (a *Notifier) Execute(ctx context.Context, task *domain.AgentTask) (*domain.AgentResult, error) {
	if task.Type != TaskActionDispatch {
		return unknownTask(task.Type)
	}
	svc, err := plugin.As[action.Service](ctx, a.plugins, action.PluginName)
	if err != nil {
		return nil, err
	}
	act, err := decodePayload[action.Action](task.Payload)
	if err != nil {
		return nil, err
	}
	rcpt, err := svc.Dispatch(ctx, act)
	if err != nil {
		return nil, err
	}
	return succeed(rcpt, rcpt.Mocked)
}

func (a *Notifier) Health(ctx context.Context) domain.HealthStatus {
	return pluginHealth(ctx, a.plugins, action.PluginName)
}

// Courier sends and drafts email on behalf of the platform.
type Courier struct {
	plugins *plugin.Registry
}

var _ domain.AgentHandler = (*Courier)(nil)

func NewCourier(plugins *plugin.Registry) *Courier {
	return &Courier{plugins: plugins}
}

func (a *Courier) Execute(ctx context.Context, task *domain.AgentTask) (*domain.AgentResult, error) {
	svc, err := plugin.As[email.Service](ctx, a.plugins, email.PluginName)
	if err != nil {
		return nil, err
	}
	msg, err := decodePayload[email.Message](task.Payload)
	if err != nil {
		return nil, err
	}

	var rcpt *email.Receipt
	switch task.Type {
	case TaskEmailSend:
		rcpt, err = svc.Send(ctx, msg)
	case TaskEmailDraft:
		rcpt, err = svc.Draft(ctx, msg)
	default:
		return unknownTask(task.Type)
	}
	if err != nil {
		return nil, err
	}
	return succeed(rcpt, rcpt.Mocked)
}

func (a *Courier) Health(ctx context.Context) domain.HealthStatus {
	return pluginHealth(ctx, a.plugins, email.PluginName)
}

// Librarian searches course material and reference documents.
type Librarian struct {
	plugins *plugin.Registry
}

var _ domain.AgentHandler = (*Librarian)(nil)

func NewLibrarian(plugins *plugin.Registry) *Librarian {
	return &Librarian{plugins: plugins}
}

func (a *Librarian) Execute(ctx context.Context, task *domain.AgentTask) (*domain.AgentResult, error) {
	if task.Type != TaskSearchQuery {
		return unknownTask(task.Type)
	}
	svc, err := plugin.As[retrieval.Service](ctx, a.plugins, retrieval.PluginName)
	if err != nil {
		return nil, err
	}
	q, err := decodePayload[retrieval.Query](task.Payload)
	if err != nil {
		return nil, err
	}
	rs, err := svc.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return succeed(rs, rs.Mocked)
}

func (a *Librarian) Health(ctx context.Context) domain.HealthStatus {
	return pluginHealth(ctx, a.plugins, retrieval.PluginName)
}

// Recordkeeper reads and writes structured platform records.
type Recordkeeper struct {
	plugins *plugin.Registry
}

var _ domain.AgentHandler = (*Recordkeeper)(nil)

func NewRecordkeeper(plugins *plugin.Registry) *Recordkeeper {
	return &Recordkeeper{plugins: plugins}
}

// dataRequest is the payload shape for both data task types.
type dataRequest struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

func (a *Recordkeeper) Execute(ctx context.Context, task *domain.AgentTask) (*domain.AgentResult, error) {
	svc, err := plugin.As[data.Service](ctx, a.plugins, data.PluginName)
	if err != nil {
		return nil, err
	}
	req, err := decodePayload[dataRequest](task.Payload)
	if err != nil {
		return nil, err
	}

	switch task.Type {
	case TaskDataQuery:
		rs, err := svc.Query(ctx, req.SQL, req.Args...)
		if err != nil {
			return nil, err
		}
		return succeed(rs, rs.Mocked)
	case TaskDataExec:
		res, err := svc.Exec(ctx, req.SQL, req.Args...)
		if err != nil {
			return nil, err
		}
		return succeed(res, res.Mocked)
	default:
		return unknownTask(task.Type)
	}
}

func (a *Recordkeeper) Health(ctx context.Context) domain.HealthStatus {
	return pluginHealth(ctx, a.plugins, data.PluginName)
}
