package domain

// Well-known component metadata keys.
// Metadata is never rendered; it drives filtering, chrome and routing.
const (
	MetaCategory          = "category"
	MetaOrigin            = "origin"
	MetaSource            = "source"
	MetaAgentName         = "agentName"
	MetaContentType       = "contentType"
	MetaParticipantRole   = "participantRole"
	MetaComponentKey      = "componentKey"
	MetaTargetTriggerNode = "targetTriggerNode"
	MetaWorkflowID        = "workflowId"
	MetaWorkflowRunID     = "workflowRunId"
	MetaStreamingState    = "streamingState"
)

// Origin values for MetaOrigin.
const (
	OriginWorkflow = "workflow"
	OriginExternal = "external"
)
