package monitor

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"
)

// Window holds the monitor's widgets.
type Window struct {
	window fyne.Window
	ctrl   *Controller

	// Widgets
	portSelect *widget.Select
	refreshBtn *widget.Button
	connectBtn *widget.Button
	saveBtn    *widget.Button
	output     *widget.List
}

func NewWindow(window fyne.Window, ctrl *Controller) *Window {
	ui := &Window{
		window: window,
		ctrl:   ctrl,
	}
	ui.build()
	ctrl.SetOnChange(ui.sync)
	window.SetCloseIntercept(func() {
		ctrl.Close()
		window.Close()
	})
	return ui
}

func (ui *Window) build() {
	ui.portSelect = widget.NewSelect([]string{}, nil)
	ui.portSelect.PlaceHolder = "Select port"

	ui.refreshBtn = widget.NewButton("Refresh ports", func() {
		ui.refreshPorts()
	})

	ui.connectBtn = widget.NewButton("Connect", func() {
		ui.toggleConnection()
	})

	ui.saveBtn = widget.NewButton("Save log", func() {
		ui.showSaveDialog()
	})

	// The list reads through Log, which carries its own lock, so Fyne's
	// re-entrant calls here never contend with the controller.
	ui.output = widget.NewList(
		func() int {
			return ui.ctrl.Log().Len()
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.TextStyle = fyne.TextStyle{Monospace: true}
			return label
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			entry, _ := ui.ctrl.Log().At(id)
			text := ""
			if !entry.Time.IsZero() {
				text = entry.String()
			}
			obj.(*widget.Label).SetText(text)
		},
	)

	ui.refreshPorts()

	toolbar := container.NewHBox(
		widget.NewLabel("Port:"),
		ui.portSelect,
		ui.refreshBtn,
		ui.connectBtn,
		layout.NewSpacer(),
		ui.saveBtn,
	)
	content := container.NewBorder(toolbar, nil, nil, nil, ui.output)
	ui.window.SetContent(content)
}

func (ui *Window) refreshPorts() {
	ports := ui.ctrl.RefreshPorts()
	labels := make([]string, len(ports))
	for i, p := range ports {
		labels[i] = p.Label()
	}
	ui.portSelect.Options = labels
	ui.portSelect.SetSelectedIndex(0)
	ui.portSelect.Refresh()
}

// selectedPath returns the device path behind the selected entry, empty for
// the placeholder or no selection.
func (ui *Window) selectedPath() string {
	i := ui.portSelect.SelectedIndex()
	ports := ui.ctrl.Ports()
	if i < 0 || i >= len(ports) {
		return ""
	}
	return ports[i].Path
}

func (ui *Window) toggleConnection() {
	err := ui.ctrl.Toggle(ui.selectedPath())
	switch {
	case err == nil, errors.Is(err, ErrNoPort):
		// Already reported in the log.
	case errors.Is(err, ErrStillStopping):
		dialog.ShowError(err, ui.window)
	default:
		dialog.ShowError(fmt.Errorf("failed to connect: %w", err), ui.window)
	}
	ui.sync()
}

// sync brings the widgets in line with the controller. Runs on the UI thread.
func (ui *Window) sync() {
	if ui.ctrl.Connected() {
		ui.connectBtn.SetText("Disconnect")
		ui.portSelect.Disable()
		ui.refreshBtn.Disable()
	} else {
		ui.connectBtn.SetText("Connect")
		ui.portSelect.Enable()
		ui.refreshBtn.Enable()
	}
	ui.output.Refresh()
	if ui.ctrl.Log().Len() > 0 {
		ui.output.ScrollToBottom()
	}
}

func (ui *Window) showSaveDialog() {
	entries := ui.ctrl.Log().Entries()
	if len(entries) == 0 {
		dialog.ShowInformation("Save log", "The log is empty.", ui.window)
		return
	}

	includeTimestamps := widget.NewCheck("Include timestamps", nil)
	includeTimestamps.SetChecked(true)

	dialog.ShowCustomConfirm("Save log", "Save", "Cancel", includeTimestamps, func(confirmed bool) {
		if !confirmed {
			return
		}

		fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
			if err != nil || writer == nil {
				return
			}
			writer.Close()

			savePath := writer.URI().Path()
			// Windows paths come back as /C:/...
			if len(savePath) > 2 && savePath[0] == '/' && savePath[2] == ':' {
				savePath = savePath[1:]
			}

			opts := ExportOptions{
				FilePath:          savePath,
				IncludeTimestamps: includeTimestamps.Checked,
			}
			if err := ExportLog(entries, opts); err != nil {
				dialog.ShowError(err, ui.window)
				return
			}
			dialog.ShowInformation("Save log", fmt.Sprintf("Saved %d entries.", len(entries)), ui.window)
		}, ui.window)
		fd.SetFileName("serial_log.csv")
		fd.Show()
	}, ui.window)
}
