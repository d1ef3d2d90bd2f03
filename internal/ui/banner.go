// Package ui provides styled console output for the Comet router.
package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASCII ART BANNER
// ══════════════════════════════════════════════════════════════════════════════

// PrintBanner displays the ASCII art startup banner.
func PrintBanner() {
	fmt.Println()

	cyan := color.New(color.FgCyan, color.Bold)
	magenta := color.New(color.FgMagenta, color.Bold)
	hiCyan := color.New(color.FgHiCyan)
	yellow := color.New(color.FgYellow, color.Bold)
	white := color.New(color.FgWhite)
	dim := color.New(color.FgHiBlack)

	cyan.Println("╔══════════════════════════════════════════════════════════════════╗")

	cyan.Print("║  ")
	hiCyan.Print(" ██████╗ ██████╗ ███╗   ███╗███████╗████████╗")
	dim.Print("  ")
	magenta.Print("☄ ROUTER")
	dim.Print("         ")
	cyan.Println("║")

	cyan.Print("║  ")
	hiCyan.Print("██╔════╝██╔═══██╗████╗ ████║██╔════╝╚══██╔══╝")
	dim.Print("                   ")
	cyan.Println("║")

	cyan.Print("║  ")
	hiCyan.Print("██║     ██║   ██║██╔████╔██║█████╗     ██║   ")
	dim.Print("                   ")
	cyan.Println("║")

	cyan.Print("║  ")
	hiCyan.Print("██║     ██║   ██║██║╚██╔╝██║██╔══╝     ██║   ")
	dim.Print("                   ")
	cyan.Println("║")

	cyan.Print("║  ")
	hiCyan.Print("╚██████╗╚██████╔╝██║ ╚═╝ ██║███████╗   ██║   ")
	dim.Print("                   ")
	cyan.Println("║")

	cyan.Print("║  ")
	hiCyan.Print(" ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚══════╝   ╚═╝   ")
	dim.Print("                   ")
	cyan.Println("║")

	cyan.Println("╠══════════════════════════════════════════════════════════════════╣")

	cyan.Print("║  ")
	yellow.Print("TIERED MODEL ROUTER")
	dim.Print("  │  ")
	magenta.Print("PLAN + EXECUTE")
	dim.Print("  │  ")
	white.Print("v1.0.0")
	dim.Print("               ")
	cyan.Println("║")

	cyan.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}
