// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"
	"strings"

	"github.com/relabs-tech/imu_logger/internal/notify"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	width      = 128
	height     = 64
	lineHeight = 13
	// lineChars is how many 7px glyphs fit on one row.
	lineChars = width / 7
	maxLines  = height / lineHeight
)

// IdleLines is the text of the idle status view.
func IdleLines(st notify.IdleStatus) []string {
	lines := make([]string, 0, maxLines)
	if st.ClockSet {
		lines = append(lines, st.Now.Format("02/01/2006"), st.Now.Format("15:04:05"))
	} else {
		lines = append(lines, "RTC error", "")
	}

	switch {
	case st.Recording:
		lines = append(lines, "Capturing", fmt.Sprintf("#%d/%d", st.Samples, st.Limit))
	case st.Mounted:
		lines = append(lines, "Ready to start", "capture")
	case st.Present:
		lines = append(lines, "MOUNT SD CARD", "")
	default:
		lines = append(lines, "MOUNT SD CARD", "(no card)")
	}
	return lines
}

// MessageLines word-wraps msg to the display width.
func MessageLines(msg string) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(msg) {
		for len(word) > lineChars {
			if cur != "" {
				lines = append(lines, cur)
				cur = ""
			}
			lines = append(lines, word[:lineChars])
			word = word[lineChars:]
		}
		switch {
		case cur == "":
			cur = word
		case len(cur)+1+len(word) <= lineChars:
			cur += " " + word
		default:
			lines = append(lines, cur)
			cur = word
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// Render draws lines top to bottom with the 7x13 font.
func Render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, width, height))

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	for i, line := range lines {
		if i >= maxLines {
			break
		}
		drawer.Dot = fixed.P(0, lineHeight*(i+1)-2)
		drawer.DrawString(line)
	}
	return img
}
