// Package diagram turns extracted artifacts into Mermaid markup.
package diagram

import (
	"fmt"
	"strings"

	"ba-assistant-be/pkg/artifact"
)

// Diagram names used as keys when publishing
const (
	UseCaseDiagram = "Use Case Diagram"
	ProcessFlow    = "Process Flow"
	KPIDashboard   = "KPI Dashboard"
)

type StepKind string

const (
	StepStart      StepKind = "start"
	StepEnd        StepKind = "end"
	StepProcess    StepKind = "process"
	StepDecision   StepKind = "decision"
	StepSubprocess StepKind = "subprocess"
)

// Step is one node of a process flowchart
type Step struct {
	ID    string
	Label string
	Kind  StepKind
	// EdgeLabel annotates the edge to the next step
	EdgeLabel string
}

// Diagram is a named piece of Mermaid markup
type Diagram struct {
	Name   string
	Markup string
}

// BuildAll renders every diagram the artifacts allow, in a stable order:
// use case diagram, process flow of the first use case, KPI dashboard.
func BuildAll(a artifact.Artifacts) []Diagram {
	var diagrams []Diagram

	if len(a.UseCases) > 0 {
		diagrams = append(diagrams, Diagram{Name: UseCaseDiagram, Markup: UseCases(a.UseCases)})
		if flow := a.UseCases[0].MainFlow; len(flow) > 0 {
			diagrams = append(diagrams, Diagram{Name: ProcessFlow, Markup: Flowchart("Main Use Case Flow", StepsFromFlow(flow), "TD")})
		}
	}
	if len(a.KPIs) > 0 {
		diagrams = append(diagrams, Diagram{Name: KPIDashboard, Markup: KPIs(a.KPIs)})
	}

	return diagrams
}

// StepsFromFlow maps a main flow to steps: first is start, last is end
func StepsFromFlow(flow []string) []Step {
	steps := make([]Step, len(flow))
	for i, label := range flow {
		kind := StepProcess
		switch {
		case i == 0:
			kind = StepStart
		case i == len(flow)-1:
			kind = StepEnd
		}
		steps[i] = Step{ID: nodeID(i), Label: label, Kind: kind}
	}
	return steps
}

// Flowchart renders a linear process. direction is LR or TD.
func Flowchart(title string, steps []Step, direction string) string {
	if direction == "" {
		direction = "LR"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n    %%%% %s\n\n", direction, title)

	var startEnd, process, decision []string
	for _, s := range steps {
		label := escape(s.Label)
		switch s.Kind {
		case StepStart, StepEnd:
			fmt.Fprintf(&b, "    %s([\"%s\"])\n", s.ID, label)
			startEnd = append(startEnd, s.ID)
		case StepDecision:
			fmt.Fprintf(&b, "    %s{\"%s\"}\n", s.ID, label)
			decision = append(decision, s.ID)
		case StepSubprocess:
			fmt.Fprintf(&b, "    %s[/\"%s\"/]\n", s.ID, label)
			process = append(process, s.ID)
		default:
			fmt.Fprintf(&b, "    %s[\"%s\"]\n", s.ID, label)
			process = append(process, s.ID)
		}
	}
	b.WriteString("\n")

	for i := 0; i+1 < len(steps); i++ {
		if steps[i].EdgeLabel != "" {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", steps[i].ID, escape(steps[i].EdgeLabel), steps[i+1].ID)
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", steps[i].ID, steps[i+1].ID)
		}
	}

	b.WriteString("\n    classDef startEnd fill:#90EE90,stroke:#333,stroke-width:2px\n")
	b.WriteString("    classDef process fill:#87CEEB,stroke:#333,stroke-width:2px\n")
	b.WriteString("    classDef decision fill:#FFD700,stroke:#333,stroke-width:2px\n")
	writeClass(&b, startEnd, "startEnd")
	writeClass(&b, process, "process")
	writeClass(&b, decision, "decision")

	return strings.TrimRight(b.String(), "\n")
}

// UseCases renders actors linked to their use cases
func UseCases(useCases []artifact.UseCase) string {
	var b strings.Builder
	b.WriteString("graph TB\n    %% Use Case Diagram\n\n")

	var actors []string
	seen := map[string]bool{}
	for _, uc := range useCases {
		if !seen[uc.Actor] {
			seen[uc.Actor] = true
			actors = append(actors, uc.Actor)
		}
	}

	actorIDs := make([]string, len(actors))
	for i, actor := range actors {
		actorIDs[i] = identifier(actor)
		fmt.Fprintf(&b, "    %s[/\"%s\"/]\n", actorIDs[i], escape(actor))
	}
	b.WriteString("\n")

	for _, uc := range useCases {
		fmt.Fprintf(&b, "    %s(\"%s\")\n", identifier(uc.ID), escape(uc.Title))
	}
	b.WriteString("\n")

	for _, uc := range useCases {
		fmt.Fprintf(&b, "    %s --> %s\n", identifier(uc.Actor), identifier(uc.ID))
	}

	b.WriteString("\n    classDef actor fill:#FFE4B5,stroke:#333,stroke-width:2px\n")
	b.WriteString("    classDef usecase fill:#87CEEB,stroke:#333,stroke-width:2px\n")
	writeClass(&b, actorIDs, "actor")

	return strings.TrimRight(b.String(), "\n")
}

// KPIs renders a dashboard grouped by category
func KPIs(kpis []artifact.KPI) string {
	var b strings.Builder
	b.WriteString("graph TD\n    %% KPI Dashboard\n\n    KPI[KPI Dashboard]\n\n")

	var categories []string
	grouped := map[string][]artifact.KPI{}
	for _, k := range kpis {
		if _, ok := grouped[k.Category]; !ok {
			categories = append(categories, k.Category)
		}
		grouped[k.Category] = append(grouped[k.Category], k)
	}

	for _, category := range categories {
		catID := identifier(category)
		fmt.Fprintf(&b, "    subgraph %s[%s]\n", catID, escape(category))
		for i, k := range grouped[category] {
			fmt.Fprintf(&b, "        %s_%d[\"%s<br/>Target: %s\"]\n", catID, i, escape(k.Name), escape(k.Target))
		}
		b.WriteString("    end\n\n")
		fmt.Fprintf(&b, "    KPI --> %s\n\n", catID)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeClass(b *strings.Builder, ids []string, class string) {
	if len(ids) == 0 {
		return
	}
	fmt.Fprintf(b, "    class %s %s\n", strings.Join(ids, ","), class)
}

// nodeID yields A..Z then N26, N27, ...
func nodeID(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("N%d", i)
}

func identifier(s string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(s))
}

// escape keeps labels from breaking out of their quoted node shape
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
