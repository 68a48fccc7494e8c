package platform

// SelectorTable is the per-platform structural matching data. The
// three shipped tables cover the supported messaging surfaces; hosts
// may register replacements without touching adapter code.
type SelectorTable struct {
	Name string

	// Host discriminators, checked against the page URL host.
	Hosts []string
	// Content-signature markers: structural classes distinctive
	// enough to identify the platform when host detection fails.
	SignatureClasses []string

	MessageClasses  []string
	OutboundClasses []string
	TextClasses     []string
	TimeClasses     []string

	TypingClasses []string
	// Attribute name/substring pairs that mark a typing indicator,
	// e.g. aria-label containing "typing".
	TypingAttrs map[string]string

	HeaderClasses []string
	InputClasses  []string

	// Page titles that are generic placeholders rather than the
	// active contact's name.
	TitlePlaceholders []string
}

// DefaultTables returns the built-in tables in resolution priority
// order.
func DefaultTables() []SelectorTable {
	return []SelectorTable{
		{
			Name:              "whatsapp",
			Hosts:             []string{"web.whatsapp.com"},
			SignatureClasses:  []string{"message-in", "message-out", "copyable-area"},
			MessageClasses:    []string{"message-in", "message-out"},
			OutboundClasses:   []string{"message-out"},
			TextClasses:       []string{"selectable-text", "copyable-text"},
			TimeClasses:       []string{"msg-meta", "message-time"},
			TypingClasses:     []string{"typing", "typing-indicator"},
			TypingAttrs:       map[string]string{"aria-label": "typing", "title": "typing"},
			HeaderClasses:     []string{"chat-title", "conversation-header"},
			InputClasses:      []string{"message-input", "compose-box-input"},
			TitlePlaceholders: []string{"WhatsApp"},
		},
		{
			Name:              "messenger",
			Hosts:             []string{"www.messenger.com", "messenger.com"},
			SignatureClasses:  []string{"msgr-message-row", "msgr-compose"},
			MessageClasses:    []string{"msgr-message-row", "message-row"},
			OutboundClasses:   []string{"msgr-outgoing", "outgoing"},
			TextClasses:       []string{"msgr-message-text", "message-text"},
			TimeClasses:       []string{"msgr-timestamp", "timestamp"},
			TypingClasses:     []string{"msgr-typing-indicator", "typing-indicator"},
			TypingAttrs:       map[string]string{"aria-label": "typing"},
			HeaderClasses:     []string{"msgr-thread-title", "thread-title"},
			InputClasses:      []string{"msgr-composer-input", "composer-input"},
			TitlePlaceholders: []string{"Messenger", "Facebook"},
		},
		{
			Name:              "instagram",
			Hosts:             []string{"www.instagram.com", "instagram.com"},
			SignatureClasses:  []string{"ig-dm-row", "ig-thread"},
			MessageClasses:    []string{"ig-dm-row", "dm-message"},
			OutboundClasses:   []string{"ig-dm-own", "own-message"},
			TextClasses:       []string{"ig-dm-text", "dm-text"},
			TimeClasses:       []string{"ig-dm-time", "dm-time"},
			TypingClasses:     []string{"ig-typing", "typing-indicator"},
			TypingAttrs:       map[string]string{"aria-label": "typing"},
			HeaderClasses:     []string{"ig-thread-title", "thread-header"},
			InputClasses:      []string{"ig-dm-input", "dm-input"},
			TitlePlaceholders: []string{"Instagram", "Direct"},
		},
	}
}
