package model

// QuickReply 快捷回复
type QuickReply struct {
	Text string `json:"text"`
	Mood string `json:"mood"`
}

// QuickReplies 固定的四条提示
func QuickReplies() []QuickReply {
	return []QuickReply{
		{Text: "Tell me something inspiring! ✨", Mood: "excited"},
		{Text: "How can AI help make the world better?", Mood: "thoughtful"},
		{Text: "What's your favorite thing about helping people?", Mood: "happy"},
		{Text: "Can you help me brainstorm ideas?", Mood: "curious"},
	}
}
