// Package proposal drafts the research proposal of the final trial from the
// answers a team gave in earlier trials.
package proposal

import (
	_ "embed"
	"strings"
	"text/template"

	"hunter_trials/internal/trial"
)

const (
	DefaultTopic       = "原住民傳統陷阱的力學分析"
	DefaultIndependent = "陷阱材質 (Material)"
	DefaultDependent   = "觸發成功率 (Success Rate)"
	DefaultControlled  = "擺放高度 (Height)"

	// NoTopic stands in when the taxonomy trial saved no topic
	NoTopic = "未偵測到主題"
)

//go:embed proposal.tmpl
var offlineSource string

var offlineTemplate = template.Must(template.New("offline").Parse(offlineSource))

// Design holds the experiment variables saved by the trap trial.
type Design struct {
	Topic       string
	Independent string
	Dependent   string
	Controlled  string
}

// ParseDesign reads "Topic: … | IV: … | DV: … | CV: …". Missing fields keep
// their defaults.
func ParseDesign(s string) Design {
	d := Design{
		Independent: DefaultIndependent,
		Dependent:   DefaultDependent,
		Controlled:  DefaultControlled,
	}
	if !strings.Contains(s, "|") {
		return d
	}
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "TOPIC":
			d.Topic = value
		case "IV":
			d.Independent = value
		case "DV":
			d.Dependent = value
		case "CV":
			d.Controlled = value
		}
	}
	return d
}

// CleanTopic strips a leading "Topic:" label and falls back to the default.
func CleanTopic(topic string) string {
	t := strings.TrimSpace(topic)
	t = strings.TrimSpace(strings.TrimPrefix(t, "Topic:"))
	if t == "" {
		return DefaultTopic
	}
	return t
}

// Offline renders the four-section proposal without any external service.
func Offline(topic string, d Design) (string, error) {
	var b strings.Builder
	err := offlineTemplate.Execute(&b, struct {
		Topic  string
		Design Design
	}{CleanTopic(topic), d})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// Generate drafts the proposal from the taxonomy topic and the trap design.
func Generate(answers map[trial.ID]string) (string, error) {
	topic := answers[trial.Taxonomy]
	if strings.TrimSpace(topic) == "" {
		topic = NoTopic
	}
	return Offline(topic, ParseDesign(answers[trial.Trap]))
}
