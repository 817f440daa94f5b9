package main

import (
	"fmt"
	"io"

	"era-vendors-api/internal/models"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

func renderVendors(w io.Writer, vendors []models.Vendor, selected func(string) bool) {
	if len(vendors) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No vendors found."))
		return
	}
	t := newTable("", "ID", "Name", "Contact Person", "Email", "Phone", "Address")
	for _, v := range vendors {
		mark := "[ ]"
		if selected != nil && selected(v.ID) {
			mark = "[x]"
		}
		t.Row(mark, v.ID, v.Name, v.ContactPerson, v.Email, v.Phone, v.Address)
	}
	fmt.Fprintln(w, t.Render())
}

func renderVendor(w io.Writer, v models.Vendor, summary string, history []models.HistoryEntry) {
	fields := newTable("Field", "Value").
		Row("ID", v.ID).
		Row("Name", v.Name).
		Row("Contact Person", v.ContactPerson).
		Row("Email", v.Email).
		Row("Phone", v.Phone).
		Row("Address", v.Address)
	fmt.Fprintln(w, fields.Render())

	if summary != "" {
		fmt.Fprintln(w, mutedStyle.Render(summary))
	}
	if len(history) == 0 {
		return
	}
	h := newTable("When", "User", "Action")
	for _, e := range history {
		h.Row(e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.User, e.Action)
	}
	fmt.Fprintln(w, h.Render())
}
