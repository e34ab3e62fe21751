package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/cxmidi/pkg/link"
)

// showSettingsDialog edits the running configuration. Changes apply on the
// next connect and are not written back to the config file.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDecoderTab(state),
		createMockTab(state),
	)

	d := dialog.NewCustom("Settings", "Close", tabs, state.window)
	d.Resize(fyne.NewSize(500, 400))
	d.Show()
}

func createSerialTab(state *appState) *container.TabItem {
	ports, err := link.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // display name -> port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	currentDisplay := state.cfg.Serial.Port
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == state.cfg.Serial.Port {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentDisplay != "" {
		portOptions = append(portOptions, currentDisplay)
		portMap[currentDisplay] = currentDisplay
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			if portSelect.Selected != "" {
				selected := portMap[portSelect.Selected]
				if selected == "" {
					selected = portSelect.Selected
				}
				state.cfg.Serial.Port = selected
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				state.cfg.Serial.BaudRate = baud
			}
			reconnect(state)
		},
	}

	return container.NewTabItem("Serial", form)
}

func createDecoderTab(state *appState) *container.TabItem {
	transposeEntry := widget.NewEntry()
	transposeEntry.SetText(strconv.Itoa(int(state.cfg.Decoder.Transpose)))

	queueEntry := widget.NewEntry()
	queueEntry.SetText(strconv.Itoa(state.cfg.Decoder.QueueSize))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Transpose", Widget: transposeEntry},
			{Text: "Queue Size", Widget: queueEntry},
		},
		OnSubmit: func() {
			prev := state.cfg.Decoder
			if t, err := strconv.ParseInt(transposeEntry.Text, 10, 8); err == nil {
				state.cfg.Decoder.Transpose = int8(t)
			}
			if q, err := strconv.Atoi(queueEntry.Text); err == nil {
				state.cfg.Decoder.QueueSize = q
			}
			if err := state.cfg.Validate(); err != nil {
				state.cfg.Decoder = prev
				dialog.ShowError(err, state.window)
				return
			}
			low, high := noteRange(state.cfg.Decoder.Transpose)
			state.keyboard.SetRange(low, high)
			reconnect(state)
		},
	}

	return container.NewTabItem("Decoder", form)
}

func createMockTab(state *appState) *container.TabItem {
	frameEntry := widget.NewEntry()
	frameEntry.SetText(state.cfg.Mock.FrameInterval.String())

	pressEntry := widget.NewEntry()
	pressEntry.SetText(state.cfg.Mock.PressInterval.String())

	holdEntry := widget.NewEntry()
	holdEntry.SetText(state.cfg.Mock.HoldDuration.String())

	pedalEntry := widget.NewEntry()
	pedalEntry.SetText(state.cfg.Mock.PedalInterval.String())

	seedEntry := widget.NewEntry()
	seedEntry.SetText(strconv.FormatUint(state.cfg.Mock.Seed, 10))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Frame Interval", Widget: frameEntry},
			{Text: "Press Interval (0 = off)", Widget: pressEntry},
			{Text: "Hold Duration", Widget: holdEntry},
			{Text: "Pedal Interval (0 = off)", Widget: pedalEntry},
			{Text: "Seed", Widget: seedEntry},
		},
		OnSubmit: func() {
			if d, err := time.ParseDuration(frameEntry.Text); err == nil && d > 0 {
				state.cfg.Mock.FrameInterval = d
			}
			if d, err := time.ParseDuration(pressEntry.Text); err == nil {
				state.cfg.Mock.PressInterval = d
			}
			if d, err := time.ParseDuration(holdEntry.Text); err == nil {
				state.cfg.Mock.HoldDuration = d
			}
			if d, err := time.ParseDuration(pedalEntry.Text); err == nil {
				state.cfg.Mock.PedalInterval = d
			}
			if seed, err := strconv.ParseUint(seedEntry.Text, 10, 64); err == nil {
				state.cfg.Mock.Seed = seed
			}
			if state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}

// reconnect restarts a running chain so new settings take effect.
func reconnect(state *appState) {
	if state.device == nil || !state.device.IsConnected() {
		return
	}
	disconnect(state)
	handleConnect(state)
}
