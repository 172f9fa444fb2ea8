package ethics

// 固定的信息来源
var recordSources = []string{"model-service", "ethical-guidelines", "knowledge-base"}

// 固定的伦理考量清单
var ethicalConsiderations = []string{
	"Privacy & Data Protection",
	"Safety & Harm Prevention",
	"Accuracy & Fact Verification",
	"Bias Mitigation",
	"Professional Advice Boundaries",
	"Scam & Manipulation Detection",
	"Cultural Sensitivity",
	"Transparency & Accountability",
}

// TransparencyRecord 附在助手回复上的透明度记录
type TransparencyRecord struct {
	Reasoning             string   `json:"reasoning"`
	Sources               []string `json:"sources"`
	EthicalConsiderations []string `json:"ethicalConsiderations"`
}

// Record 将评估结果打包为透明度记录，与触发的标记无关
func Record(result Result) *TransparencyRecord {
	return &TransparencyRecord{
		Reasoning:             result.Reasoning,
		Sources:               append([]string(nil), recordSources...),
		EthicalConsiderations: append([]string(nil), ethicalConsiderations...),
	}
}

// WelcomeRecord 登录欢迎消息的透明度记录
func WelcomeRecord() *TransparencyRecord {
	return &TransparencyRecord{
		Reasoning:             "Personalized welcome message designed to be warm and inviting.",
		Sources:               []string{"User profile", "Ethical guidelines", "Welcoming protocols"},
		EthicalConsiderations: []string{"Personal connection", "Transparency", "Positive user experience"},
	}
}
