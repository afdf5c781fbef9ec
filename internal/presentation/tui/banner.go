package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`  ____  _                       _          `,
	` / ___|| |_ ___ _ __  __      _(_)___  ___ `,
	` \___ \| __/ _ \ '_ \ \ \ /\ / / / __|/ _ \`,
	`  ___) | ||  __/ |_) | \ V  V /| \__ \  __/`,
	` |____/ \__\___| .__/   \_/\_/ |_|___/\___|`,
	`               |_|                         `,
}

var bannerColors = []string{"#34d399", "#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}

// PrintBanner writes the Stepwise banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, p.String(line).Foreground(p.Color(bannerColors[i])))
	}
	fmt.Fprintln(w)
}
