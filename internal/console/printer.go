package console

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nakari-agent/server/internal/agent/model"
)

const maxArgPreview = 60

// Printer writes styled conversation output.
type Printer struct {
	out  io.Writer
	name string
	// errored is set when an error step is printed during the current turn.
	errored bool
}

func NewPrinter(out io.Writer, agentName string) *Printer {
	if agentName == "" {
		agentName = "nakari"
	}
	return &Printer{out: out, name: agentName}
}

// Name is the agent name shown in panel titles.
func (p *Printer) Name() string {
	return p.name
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Header(text string) {
	p.println(panelStyle(blue).Render(panelTitle(p.name, blue) + "\n" + text))
}

func (p *Printer) Info(text string) {
	p.println(dimStyle.Render(text))
}

func (p *Printer) Help() {
	lines := []string{
		helpTitleStyle.Render(p.name + " commands:"),
		"",
		"  " + boldStyle.Render("/quit") + " or " + boldStyle.Render("/exit") + "  Exit the conversation",
		"  " + boldStyle.Render("/help") + "              Show this help message",
		"  " + boldStyle.Render("/schema") + "            Display the memory graph schema",
		"  " + boldStyle.Render("/clear") + "             Forget this conversation's history",
		"",
		"  Any other input is sent to " + p.name + ".",
	}
	p.println(strings.Join(lines, "\n"))
}

func (p *Printer) Prompt() {
	fmt.Fprint(p.out, promptStyle.Render("You:")+" ")
}

func (p *Printer) ToolCall(name string, args map[string]any) {
	p.println(dimStyle.Render(toolIcon(name) + " " + name))
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := args[k]
		switch k {
		case "cypher":
			p.println("    " + dimStyle.Render("Cypher:") + " " + fmt.Sprint(v))
		case "params":
			if m, ok := v.(map[string]any); ok && len(m) == 0 {
				continue
			}
			raw, _ := json.Marshal(v)
			p.println("    " + dimStyle.Render("Params:") + " " + string(raw))
		case "text", "query":
			label := strings.ToUpper(k[:1]) + k[1:] + ":"
			p.println("    " + dimStyle.Render(label) + " " + preview(fmt.Sprint(v)))
		default:
			p.println("    " + dimStyle.Render(k+":") + " " + fmt.Sprint(v))
		}
	}
}

func (p *Printer) ToolResult(result any) {
	summary := Summarize(result)
	if strings.HasPrefix(summary, "Error: ") {
		p.println("    " + dimStyle.Render("→ ") + errorTextStyle.Render(summary))
		return
	}
	p.println("    " + dimStyle.Render("→ "+summary))
}

func (p *Printer) Response(content string) {
	p.println(panelStyle(green).Render(panelTitle(p.name, green) + "\n" + content))
}

func (p *Printer) Error(message string) {
	p.errored = true
	p.println(panelStyle(red).Render(panelTitle("Error", red) + "\n" + message))
}

// Schema prints v as indented JSON.
func (p *Printer) Schema(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		p.Error(err.Error())
		return
	}
	p.println(panelStyle(yellow).Render(panelTitle("Memory Schema", yellow) + "\n" + string(raw)))
}

// OnStep renders loop steps as they happen.
func (p *Printer) OnStep(step model.Step) {
	switch step.Type {
	case model.StepToolCall:
		p.ToolCall(step.Name, step.Arguments)
	case model.StepToolResult:
		p.ToolResult(step.Result)
	case model.StepResponse:
		if step.Content != "" {
			p.Response(step.Content)
		}
	case model.StepError:
		p.Error(step.Content)
	}
}

func (p *Printer) resetTurn() {
	p.errored = false
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= maxArgPreview {
		return s
	}
	return string(r[:maxArgPreview]) + "..."
}
