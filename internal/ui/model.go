// Package ui 终端仪表盘与文本报告
package ui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/langchou/r5gazer/internal/models"
)

// DashboardPort 仪表盘依赖的刷新接口
type DashboardPort interface {
	Refresh(ctx context.Context) (*models.VehicleSnapshot, error)
}

type tabID int

const (
	tabInfos tabID = iota
	tabCharges
	tabMap
	tabCount
)

var tabLabels = [tabCount]string{"Infos", "Recharges", "Carte"}

type refreshedMsg struct {
	snapshot *models.VehicleSnapshot
	err      error
}

// Model 仪表盘根模型
type Model struct {
	port     DashboardPort
	snapshot *models.VehicleSnapshot

	activeTab tabID
	loading   bool
	status    string
	width     int
	height    int
}

// NewModel 创建仪表盘，initial 可为 nil
func NewModel(port DashboardPort, initial *models.VehicleSnapshot) Model {
	return Model{
		port:      port,
		snapshot:  initial,
		activeTab: tabInfos,
		loading:   true,
		status:    loadingStatus,
	}
}

const loadingStatus = "chargement des données Renault..."

// Init 启动时刷新一次，刷新结束前忽略 r
func (m Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m Model) refreshCmd() tea.Cmd {
	port := m.port
	return func() tea.Msg {
		snap, err := port.Refresh(context.Background())
		return refreshedMsg{snapshot: snap, err: err}
	}
}

// Update 处理按键和刷新结果
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshedMsg:
		m.loading = false
		if msg.err != nil {
			// 保留上一次的数据
			m.status = "erreur : " + msg.err.Error()
			return m, nil
		}
		m.snapshot = msg.snapshot
		m.status = "mis à jour"

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "left":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
		case "r":
			if m.loading {
				return m, nil
			}
			m.loading = true
			m.status = loadingStatus
			return m, m.refreshCmd()
		}
	}
	return m, nil
}

// View 渲染页签、内容和状态栏
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderTabBar(), m.activeView(), m.renderStatusBar())
}

func (m Model) activeView() string {
	if m.snapshot == nil {
		return Muted.Render("Aucune donnée, appuyez sur r pour charger")
	}
	switch m.activeTab {
	case tabInfos:
		return RenderInfos(m.snapshot)
	case tabCharges:
		return RenderCharges(m.snapshot)
	case tabMap:
		return RenderMap(m.snapshot)
	}
	return ""
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		label := " " + tabLabels[i] + " "
		if i == m.activeTab {
			parts[i] = Hot.Render(label)
		} else {
			parts[i] = Muted.Render(label)
		}
	}
	bar := Title.Render("r5gazer") + "  " + strings.Join(parts, Muted.Render(" │ "))
	if m.snapshot != nil && m.snapshot.LastUpdate != "" {
		bar += "  " + Muted.Render("Dernière mise à jour : "+m.snapshot.LastUpdate)
	}
	return bar + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	right := Muted.Render("r:rafraîchir  tab:onglet  q:quitter")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return "\n" + left + strings.Repeat(" ", gap) + right
}
