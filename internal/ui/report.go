package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/langchou/r5gazer/internal/analysis"
	"github.com/langchou/r5gazer/internal/models"
	"github.com/langchou/r5gazer/internal/timeutil"
)

// RenderReport 三个页签内容依次输出，供 report 命令使用
func RenderReport(snap *models.VehicleSnapshot) string {
	if snap == nil {
		return Muted.Render("Aucune donnée")
	}
	header := Title.Render("Données Renault R5 E-Tech") + "\n" +
		Muted.Render("Dernière mise à jour : "+lastUpdate(snap))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		RenderInfos(snap),
		"",
		RenderCharges(snap),
		"",
		RenderMap(snap),
	)
}

func lastUpdate(snap *models.VehicleSnapshot) string {
	if snap.LastUpdate == "" {
		return NA
	}
	return snap.LastUpdate
}

// RenderInfos 电池与统计
func RenderInfos(snap *models.VehicleSnapshot) string {
	var b strings.Builder
	capacity := snap.UsableCapacity

	b.WriteString(Title.Render("État de la batterie") + "\n")
	fmt.Fprintf(&b, "Niveau actuel : %d %% (%.2f kWh / %d kWh)\n",
		snap.BatteryLevel, snap.BatteryEnergy(), int(capacity))

	b.WriteString("\n" + Title.Render("Statistiques globales") + "\n")
	fmt.Fprintf(&b, "Énergie totale rechargée : %.2f kWh (en %d recharges)\n",
		snap.Stats.TotalEnergy, snap.Stats.SessionCount)
	fmt.Fprintf(&b, "Kilométrage parcouru : %s km\n", formatNumber(snap.MileageKm))
	fmt.Fprintf(&b, "Consommation moyenne : %s kWh/100km\n", formatFloatPtr(snap.Stats.AvgConsumption))
	fmt.Fprintf(&b, "Autonomie restante officielle : %s km / %s km\n",
		formatNumber(snap.BatteryAutonomy), formatIntPtr(snap.Range.MaxAutonomyOfficial))
	fmt.Fprintf(&b, "Autonomie restante recalculée avec conso moyenne : %s km / %s km\n",
		formatIntPtr(snap.Range.RemainingAutonomyRecalculated), formatIntPtr(snap.Range.MaxAutonomyRecalculated))

	b.WriteString("\n")
	if snap.PlugStatus == models.PlugPlugged {
		b.WriteString(Good.Render(PlugLabel(snap.PlugStatus)))
	} else {
		b.WriteString(Bad.Render(PlugLabel(snap.PlugStatus)))
	}
	b.WriteString("  " + Hot.Render(ChargingLabel(snap.ChargingStatus)))
	if snap.ChargingRemainingTime != nil {
		fmt.Fprintf(&b, "  (%d min restantes)", *snap.ChargingRemainingTime)
	}

	return Pane.Render(b.String())
}

var chargeHeaders = []string{
	"#", "Début charge", "Fin charge", "Niveau début", "Niveau fin",
	"Énergie (kWh)", "Récupéré", "Durée (h)", "Puissance (kW)",
}

// RenderCharges 充电表格（合计行在最前，最新的充电在上）和电量曲线
func RenderCharges(snap *models.VehicleSnapshot) string {
	var b strings.Builder
	b.WriteString(Title.Render("Historique des recharges") + "\n")

	if len(snap.Charges) == 0 {
		b.WriteString(Muted.Render("Aucune recharge sur la période"))
		return Pane.Render(b.String())
	}

	rows := [][]string{chargeHeaders, totalRow(analysis.Summarize(snap.Charges))}
	for _, row := range analysis.DisplayOrder(snap.Charges) {
		rows = append(rows, chargeRow(row))
	}
	b.WriteString(renderTable(rows))

	if sum := analysis.Summarize(snap.Charges); sum.SyntheticRows > 0 {
		fmt.Fprintf(&b, "\n%s", Muted.Render(fmt.Sprintf("* %d recharge(s) manquante(s) ajoutée(s)", sum.SyntheticRows)))
	}

	b.WriteString("\n\n" + Title.Render("Évolution du niveau de batterie") + "\n")
	b.WriteString(Sparkline(analysis.BatteryCurve(snap.Charges)))

	return Pane.Render(b.String())
}

func totalRow(sum models.ChargeSummary) []string {
	power := NA
	if sum.AveragePower != nil {
		power = fmt.Sprintf("%.2f kW", *sum.AveragePower)
	}
	return []string{
		"TOTAL", "", "", "", "",
		fmt.Sprintf("%.2f kWh", sum.TotalEnergy),
		fmt.Sprintf("%.2f %%", sum.TotalPercent),
		fmt.Sprintf("%.2f h", sum.TotalHours),
		power,
	}
}

func chargeRow(row models.ChargeRow) []string {
	r := row.Record
	number := fmt.Sprintf("%d", row.Number)
	if r.Synthetic {
		number += "*"
	}
	return []string{
		number,
		timeutil.FormatDateTime(r.StartTime),
		timeutil.FormatDateTime(r.EndTime),
		fmt.Sprintf("%d %%", r.CorrectedStartLevel),
		fmt.Sprintf("%d %%", r.EndLevel),
		fmt.Sprintf("%.2f kWh", r.EnergyRecovered),
		fmt.Sprintf("%.2f %%", r.PercentRecovered),
		fmt.Sprintf("%.2f h", r.DurationHours()),
		fmt.Sprintf("%.2f kW", r.Power),
	}
}

// renderTable 按列宽对齐，第一行为表头，第二行为合计
func renderTable(rows [][]string) string {
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, 0, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell + strings.Repeat(" ", widths[j]-lipgloss.Width(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		switch i {
		case 0:
			line = Muted.Render(line)
		case 1:
			line = Bold.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline 电量曲线（0-100%）
func Sparkline(points []models.LevelPoint) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range points {
		level := p.Level
		if level < 0 {
			level = 0
		}
		if level > 100 {
			level = 100
		}
		b.WriteRune(sparkBlocks[level*(len(sparkBlocks)-1)/100])
	}
	first, last := points[0], points[len(points)-1]
	return fmt.Sprintf("%s\n%s", Good.Render(b.String()),
		Muted.Render(fmt.Sprintf("%s (%d %%) → %s (%d %%)",
			timeutil.FormatDateTime(first.Time), first.Level,
			timeutil.FormatDateTime(last.Time), last.Level)))
}

// RenderMap 车辆位置
func RenderMap(snap *models.VehicleSnapshot) string {
	var b strings.Builder
	b.WriteString(Title.Render("Localisation du véhicule") + "\n")

	gps := snap.GPS
	if gps.Latitude == 0 && gps.Longitude == 0 {
		b.WriteString(Muted.Render("Position indisponible"))
		return Pane.Render(b.String())
	}

	fmt.Fprintf(&b, "Latitude : %.6f\nLongitude : %.6f\n", gps.Latitude, gps.Longitude)
	if gps.UpdatedAt != nil {
		fmt.Fprintf(&b, "Relevée le : %s\n", timeutil.FormatDateTime(*gps.UpdatedAt))
	}
	if addr := snap.Address.Short(); addr != "" {
		fmt.Fprintf(&b, "Adresse : %s\n", addr)
	}
	b.WriteString(Muted.Render(fmt.Sprintf("https://www.openstreetmap.org/?mlat=%.6f&mlon=%.6f#map=12/%.6f/%.6f",
		gps.Latitude, gps.Longitude, gps.Latitude, gps.Longitude)))

	return Pane.Render(b.String())
}
