package ui

import (
	"fmt"
	"time"

	"github.com/fatih/color"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR DEFINITIONS
// ══════════════════════════════════════════════════════════════════════════════

var (
	successBadge = color.New(color.BgGreen, color.FgBlack, color.Bold)
	warningBadge = color.New(color.FgYellow, color.Bold)
	errorBadge   = color.New(color.BgRed, color.FgWhite, color.Bold)
	infoBadge    = color.New(color.FgCyan, color.Bold)

	successText = color.New(color.FgGreen, color.Bold)
	warningText = color.New(color.FgYellow)
	errorText   = color.New(color.FgRed)
	infoText    = color.New(color.FgCyan)
	mutedText   = color.New(color.FgHiBlack)
	accentText  = color.New(color.FgMagenta, color.Bold)
	neonBlue    = color.New(color.FgHiCyan, color.Bold)

	methodPOST = color.New(color.BgHiMagenta, color.FgBlack, color.Bold)
	methodGET  = color.New(color.BgHiCyan, color.FgBlack, color.Bold)
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS BADGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintBenchedKey logs when a platform credential is pulled from rotation.
// Format: 💀 [BENCHED] provider key benched (reason)
func PrintBenchedKey(provider, key, reason string) {
	fmt.Print("💀 ")
	errorBadge.Print(" BENCHED ")
	fmt.Print(" ")
	infoText.Print(provider)
	fmt.Print(" ")
	errorText.Print(maskKeyShort(key))
	mutedText.Printf(" (%s)\n", reason)
}

// PrintRateLimited logs an admission-control rejection.
func PrintRateLimited(identity string, tier string) {
	fmt.Print("⛔ ")
	warningBadge.Print("[RATE LIMIT]")
	fmt.Print(" ")
	warningText.Printf("identity %s over %s quota\n", identity, tier)
}

// PrintCacheHit logs a route cache hit.
// Format: ⚡ CACHE HIT | key:xxxx...xxxx
func PrintCacheHit(cacheKey string) {
	neonBlue.Print("⚡ CACHE HIT ")
	fmt.Print("| key:")
	mutedText.Println(maskKeyShort(cacheKey))
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAN PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// PrintPlanStart announces a plan run.
// Format: [PLAN] id (N steps) goal
func PrintPlanStart(planID, goal string, steps int, fallback bool) {
	accentText.Print("[PLAN]")
	fmt.Print(" ")
	mutedText.Printf("%s ", shortID(planID))
	fmt.Printf("(%d steps) ", steps)
	if fallback {
		warningText.Print("FALLBACK ")
	}
	infoText.Println(goal)
}

// PrintStepResult shows one executed step with a pass/fail marker.
// Format: ✔/✘ [i/n] tool action (Xms)
func PrintStepResult(index, total int, toolName, action string, success bool, duration time.Duration) {
	if success {
		successText.Print("  ✔ ")
	} else {
		errorText.Print("  ✘ ")
	}
	mutedText.Printf("[%d/%d] ", index+1, total)
	accentText.Printf("%-10s ", toolName)
	fmt.Print(action)
	mutedText.Printf(" (%dms)\n", duration.Milliseconds())
}

// PrintPlanSummary shows the final tally for a run.
func PrintPlanSummary(successCount, totalCount int) {
	if successCount == totalCount {
		successBadge.Printf(" %d/%d ", successCount, totalCount)
		fmt.Print(" ")
		successText.Println("plan complete")
	} else {
		warningBadge.Printf("[%d/%d]", successCount, totalCount)
		fmt.Print(" ")
		warningText.Println("plan finished with failures")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STARTUP MESSAGES
// ══════════════════════════════════════════════════════════════════════════════

// PrintStartupInfo prints styled server startup information.
func PrintStartupInfo(host string, port int, providers []string) {
	fmt.Println()
	infoBadge.Print("[ROUTER]")
	fmt.Print(" Server starting on ")
	neonBlue.Printf("http://%s:%d\n", host, port)

	infoBadge.Print("[ROUTER]")
	fmt.Print(" Providers: ")
	if len(providers) > 0 {
		for i, p := range providers {
			if i > 0 {
				mutedText.Print(", ")
			}
			successText.Print(p)
		}
		fmt.Println()
	} else {
		errorText.Println("none configured")
	}

	fmt.Println()
	printEndpoints()
}

// printEndpoints prints the available API endpoints.
func printEndpoints() {
	mutedText.Println("  ┌──────────────────────────────────────────────────────┐")

	printEndpoint(methodPOST, " POST ", "/model/route", "Routed completion")
	printEndpoint(methodPOST, " POST ", "/model/plan", "Build a tool plan")
	printEndpoint(methodPOST, " POST ", "/agent/run", "Plan and execute a goal")
	printEndpoint(methodGET, " GET  ", "/model/status", "Provider catalog")
	printEndpoint(methodGET, " GET  ", "/model/usage", "Per-user usage")
	printEndpoint(methodGET, " GET  ", "/health", "Health check")

	mutedText.Println("  └──────────────────────────────────────────────────────┘")
	fmt.Println()
}

func printEndpoint(badge *color.Color, method, path, desc string) {
	mutedText.Print("  │ ")
	badge.Print(method)
	fmt.Printf(" %-14s ", path)
	mutedText.Printf("%-28s", desc)
	mutedText.Println(" │")
}

// PrintShutdown prints a styled shutdown message.
func PrintShutdown() {
	fmt.Println()
	warningBadge.Print("[SHUTDOWN]")
	warningText.Println(" Graceful shutdown initiated...")
}

// PrintGoodbye prints a styled goodbye message.
func PrintGoodbye() {
	successBadge.Print(" OK ")
	fmt.Print(" ")
	successText.Println("Server stopped. Goodbye! 👋")
}

// ══════════════════════════════════════════════════════════════════════════════
// UTILITY FUNCTIONS
// ══════════════════════════════════════════════════════════════════════════════

// maskKeyShort returns a short masked version of a key or hash.
// Format: xxxx...xxxx
func maskKeyShort(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// shortID truncates a uuid to its first segment.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
