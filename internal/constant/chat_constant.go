package constant

// Message roles as stored and as sent to the completion service.
const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
	MessageRoleSystem    = "system"
)

// UntitledConversation is the sentinel title until title generation runs.
const UntitledConversation = "Untitled conversation"

// Widget lifecycle statuses.
const (
	WidgetStatusGenerating = "generating"
	WidgetStatusActive     = "active"
	WidgetStatusError      = "error"
)

// SSE event names on the chat stream.
const (
	StreamEventMeta  = "meta"
	StreamEventToken = "token"
	StreamEventTitle = "title"
	StreamEventDone  = "done"
	StreamEventError = "error"
)

// Pipeline job types carried on the watermill topic.
const (
	JobTypeTagExtraction    = "TAG_EXTRACTION"
	JobTypeTagClustering    = "TAG_CLUSTERING"
	JobTypeWidgetGeneration = "WIDGET_GENERATION"
	JobTypeWidgetUpdate     = "WIDGET_UPDATE"
)

// Event codes published to NATS for the status feed.
const (
	EventTagsExtracted    = "TAGS_EXTRACTED"
	EventTagsClustered    = "TAGS_CLUSTERED"
	EventWidgetGenerating = "WIDGET_GENERATING"
	EventWidgetActive     = "WIDGET_ACTIVE"
	EventWidgetError      = "WIDGET_ERROR"
	EventWidgetDataChange = "WIDGET_DATA_CHANGED"
)

// Data operation kinds returned by the update analysis call.
const (
	DataOpAdd    = "add"
	DataOpUpdate = "update"
	DataOpDelete = "delete"
)
