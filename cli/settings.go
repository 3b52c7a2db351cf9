package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	ps "pathd.dev/pathd/settings"
)

type SettingType int

const (
	String SettingType = iota
	Float
	Bool
)

type settingsState int

const (
	showSettingsMenu settingsState = iota
	settingsExit
	settingsInput
	saveSettings
)

type settingsItem struct {
	title, desc string
	state       settingsState
	Type        SettingType
	get         func(*ps.PathdSettings) string
	set         func(*ps.PathdSettings, string)
}

func (i settingsItem) Title() string       { return i.title }
func (i settingsItem) Description() string { return i.desc }
func (i settingsItem) FilterValue() string { return i.title }

type settingsModel struct {
	list         list.Model
	state        settingsState
	textInput    textinput.Model
	selectedItem settingsItem
	prompt       string
}

func (m settingsModel) Init() tea.Cmd {
	return nil
}

func (m settingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEsc && m.state == settingsInput {
			m.state = showSettingsMenu
			return m, nil
		}
		if msg.Type == tea.KeyEnter && m.state == showSettingsMenu && m.list.FilterState() != list.Filtering {
			it := m.list.SelectedItem().(settingsItem)
			m.selectedItem = it
			m.state = it.state
			switch m.state {
			case settingsExit:
				return m, tea.Quit
			case settingsInput:
				m.prompt = fmt.Sprintf("%s (current: %s)", it.Title(), it.get(&ps.Settings))
				m.textInput = textinput.New()
				m.textInput.Focus()
			case saveSettings:
				m.state = showSettingsMenu
				ps.Settings.Save()
			}
			return m, nil
		}
		if msg.Type == tea.KeyEnter && m.state == settingsInput {
			m.state = showSettingsMenu
			m.selectedItem.set(&ps.Settings, m.textInput.Value())
			return m, nil
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
	}

	var cmd tea.Cmd
	if m.state == settingsInput {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m settingsModel) View() string {
	switch m.state {
	case settingsInput:
		return docStyle.Render(fmt.Sprintf(
			"%s\n\n%s\n\n%s",
			m.prompt,
			m.textInput.View(),
			"(esc to cancel)",
		) + "\n")
	default:
		return docStyle.Render(m.list.View())
	}
}

func boolItem(title, desc string, get func(*ps.PathdSettings) *bool) settingsItem {
	return settingsItem{
		title: title, desc: desc, Type: Bool, state: settingsInput,
		get: func(s *ps.PathdSettings) string { return strconv.FormatBool(*get(s)) },
		set: func(s *ps.PathdSettings, v string) {
			switch v {
			case "true":
				*get(s) = true
			case "false":
				*get(s) = false
			}
		},
	}
}

func floatItem(title, desc string, get func(*ps.PathdSettings) *float64) settingsItem {
	return settingsItem{
		title: title, desc: desc, Type: Float, state: settingsInput,
		get: func(s *ps.PathdSettings) string { return strconv.FormatFloat(*get(s), 'f', -1, 64) },
		set: func(s *ps.PathdSettings, v string) {
			val, err := strconv.ParseFloat(v, 64)
			if err == nil {
				*get(s) = val
			}
		},
	}
}

func getSettingsModel() settingsModel {
	items := []list.Item{
		boolItem(
			"Avoidance Enabled",
			"When enabled the optimizer softens lateral tracking near narrow bounds to leave room for avoidance",
			func(s *ps.PathdSettings) *bool { return &s.EnableAvoidance },
		),
		boolItem(
			"Skip Optimization",
			"When enabled the input path is resampled and passed through without solving",
			func(s *ps.PathdSettings) *bool { return &s.EnableSkipOptimization },
		),
		boolItem(
			"Drivable Area Stop Enabled",
			"When enabled a stop is inserted before the trajectory leaves the drivable area",
			func(s *ps.PathdSettings) *bool { return &s.EnableDrivableAreaStop },
		),
		floatItem(
			"Lateral Error Weight",
			"How strongly the optimizer tracks the input path laterally",
			func(s *ps.PathdSettings) *float64 { return &s.LatErrorWeight },
		),
		floatItem(
			"Steer Input Weight",
			"Penalty on steering magnitude, higher values straighten the result",
			func(s *ps.PathdSettings) *float64 { return &s.SteerInputWeight },
		),
		floatItem(
			"Steer Rate Weight",
			"Penalty on steering changes between segments, higher values smooth the result",
			func(s *ps.PathdSettings) *float64 { return &s.SteerRateWeight },
		),
		floatItem(
			"Soft Collision Free Weight",
			"Penalty on violating the soft drivable-area margin",
			func(s *ps.PathdSettings) *float64 { return &s.SoftCollisionFreeWeight },
		),
		floatItem(
			"Max Optimization Time",
			"Solver time budget per cycle in milliseconds",
			func(s *ps.PathdSettings) *float64 { return &s.MaxOptimizationTimeMS },
		),
		floatItem(
			"Replan Max Delta Time",
			"Seconds a previous trajectory may be reused before replanning",
			func(s *ps.PathdSettings) *float64 { return &s.ReplanMaxDeltaTimeSec },
		),
		floatItem(
			"Output Spacing",
			"Arc length between output trajectory points in meters",
			func(s *ps.PathdSettings) *float64 { return &s.OutputDeltaArcLength },
		),
		settingsItem{
			title: "Set Log Level",
			desc:  "Modify how verbose logging will be for the pathd system",
			Type:  String,
			state: settingsInput,
			get:   func(s *ps.PathdSettings) string { return s.LogLevel },
			set: func(s *ps.PathdSettings, v string) {
				s.LogLevel = v
				s.SetLogLevel()
			},
		},
		settingsItem{
			title: "Save Settings",
			desc:  "Persists any updates to the settings across reboots",
			state: saveSettings,
		},
		settingsItem{
			title: "Exit",
			desc:  "Leave settings configuration",
			state: settingsExit,
		},
	}

	listDelegate := list.NewDefaultDelegate()
	m := settingsModel{list: list.New(items, listDelegate, 0, 0)}
	m.list.Title = "Pathd Settings"
	return m
}

func settings() {
	ps.Settings.Load()
	p := tea.NewProgram(getSettingsModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
