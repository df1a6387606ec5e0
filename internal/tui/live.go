// Package tui renders a kinetic path in the terminal while it is integrated.
package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/kinsim/internal/experiment"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	red     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

const (
	historyLen  = 120
	maxSpeed    = 64
	defaultRate = 30 * time.Millisecond
)

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Live is a bubbletea model that advances an experiment's kinetic path a few
// integrator steps per frame.
type Live struct {
	exp     *experiment.Experiment
	species []string

	t, tEnd float64
	steps   int
	speed   int
	rate    time.Duration

	history  [][]float64
	selected int

	paused bool
	done   bool
	err    error

	width  int
	height int
}

// NewLive initializes the path of a set-up experiment at its configured
// start time.
func NewLive(exp *experiment.Experiment) (*Live, error) {
	if exp.Path() == nil {
		return nil, errors.New("experiment not setup")
	}
	cfg := exp.Config()
	if err := exp.Path().Initialize(exp.State(), cfg.Start); err != nil {
		return nil, err
	}
	species := exp.System().SpeciesNames()
	l := &Live{
		exp:     exp,
		species: species,
		t:       cfg.Start,
		tEnd:    cfg.Start + cfg.Duration,
		speed:   1,
		rate:    defaultRate,
		history: make([][]float64, len(species)),
		width:   80,
		height:  24,
	}
	l.record()
	return l, nil
}

// Run starts the program on the current terminal and blocks until the user
// quits.
func (l *Live) Run() error {
	final, err := tea.NewProgram(l, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(*Live); ok && m.err != nil {
		return m.err
	}
	return nil
}

func (l *Live) Time() float64 { return l.t }
func (l *Live) Steps() int    { return l.steps }
func (l *Live) Done() bool    { return l.done }
func (l *Live) Paused() bool  { return l.paused }
func (l *Live) Err() error    { return l.err }

func (l *Live) Init() tea.Cmd { return tick(l.rate) }

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return l.handleKey(msg)
	case tea.WindowSizeMsg:
		l.width = msg.Width
		l.height = msg.Height
		return l, nil
	case tickMsg:
		if !l.paused && !l.done {
			l.advance()
		}
		return l, tick(l.rate)
	}
	return l, nil
}

func (l *Live) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return l, tea.Quit
	case " ", "p":
		l.paused = !l.paused
	case "+", "=":
		l.speed = min(l.speed*2, maxSpeed)
	case "-", "_":
		l.speed = max(l.speed/2, 1)
	case "tab", "right", "l":
		l.selected = (l.selected + 1) % len(l.species)
	case "shift+tab", "left", "h":
		l.selected = (l.selected + len(l.species) - 1) % len(l.species)
	case "n":
		if l.paused && !l.done {
			speed := l.speed
			l.speed = 1
			l.advance()
			l.speed = speed
		}
	}
	return l, nil
}

func (l *Live) advance() {
	path, state := l.exp.Path(), l.exp.State()
	for i := 0; i < l.speed && l.t < l.tEnd; i++ {
		if err := path.StepUntil(state, &l.t, l.tEnd); err != nil {
			l.err = err
			l.done = true
			return
		}
		l.steps++
		l.record()
	}
	if l.t >= l.tEnd {
		l.done = true
	}
}

func (l *Live) record() {
	n := l.exp.State().SpeciesAmounts()
	for i := range l.history {
		l.history[i] = append(l.history[i], n[i])
		if len(l.history[i]) > historyLen {
			l.history[i] = l.history[i][1:]
		}
	}
}

func (l *Live) View() string {
	var b strings.Builder

	icon, status := green.Render("●"), green.Render("running")
	switch {
	case l.err != nil:
		icon, status = red.Render("✕"), red.Render("failed")
	case l.done:
		icon, status = cyan.Render("●"), cyan.Render("done")
	case l.paused:
		icon, status = yellow.Render("○"), yellow.Render("paused")
	}
	cfg := l.exp.Config()
	fmt.Fprintf(&b, "\n   %s %s  %s  %s\n", icon, cyan.Render(cfg.Name), status,
		dim.Render(fmt.Sprintf("T=%.2fK  %s", l.exp.State().Temperature(), cfg.Integrator.Method)))

	progress := 1.0
	if span := l.tEnd - cfg.Start; span > 0 {
		progress = math.Min((l.t-cfg.Start)/span, 1)
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	fmt.Fprintf(&b, "   %s %s  %s\n\n", bar,
		dim.Render(fmt.Sprintf("t=%.4gs/%.4gs", l.t, l.tEnd)),
		dim.Render(fmt.Sprintf("%d steps  x%d", l.steps, l.speed)))

	n := l.exp.State().SpeciesAmounts()
	for i, name := range l.species {
		label := fmt.Sprintf("%-14s", name)
		val := fmt.Sprintf("%12.6g", n[i])
		if i == l.selected {
			b.WriteString("   " + cyan.Render("▸ ") + white.Render(label) + magenta.Render(val) + "\n")
		} else {
			b.WriteString("     " + dim.Render(label) + dim.Render(val) + "\n")
		}
	}

	if data := l.history[l.selected]; len(data) > 1 {
		w := l.width - 16
		if w < 30 {
			w = 30
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(w),
			asciigraph.Offset(3),
			asciigraph.Caption("n["+l.species[l.selected]+"] (mol)"))
		b.WriteString("\n" + graph + "\n")
	}

	if l.err != nil {
		b.WriteString("\n   " + red.Render(l.err.Error()) + "\n")
	}

	b.WriteString("\n" + dim.Render("   space pause  n step  +/- speed  tab species  q quit") + "\n")
	return b.String()
}
