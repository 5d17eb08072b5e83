//go:build ruleguard

// Package gorules holds project lint rules run through golangci-lint's gocritic
// ruleguard checker.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// EnhancedErrors flags bare fmt.Errorf in internal packages. Errors crossing a
// package boundary go through the errors builder so they carry a component and
// a category.
func EnhancedErrors(m dsl.Matcher) {
	m.Import("github.com/blinkbus/blink-go/internal/errors")

	m.Match(`return $*_, fmt.Errorf($fmt, $*args)`, `return fmt.Errorf($fmt, $*args)`).
		Where(m.File().PkgPath.Matches(`/internal/`) &&
			!m.File().PkgPath.Matches(`/internal/errors$`) &&
			!m.File().Name.Matches(`_test\.go$`)).
		Report(`use errors.Newf(...).Component(...).Category(...).Build() instead of fmt.Errorf`)
}

// ModuleLogger flags the standard log package outside main.
func ModuleLogger(m dsl.Matcher) {
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`, `log.Fatalf($*_)`, `log.Fatal($*_)`).
		Where(m.File().Imports("log") && !m.File().PkgPath.Matches(`/tools/`)).
		Report(`use logger.Global().Module(...) instead of the log package`)
}

// TestContext prefers t.Context over context.Background in tests.
func TestContext(m dsl.Matcher) {
	m.Match(`context.Background()`).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report(`use t.Context() in tests`)
}

// WaitGroupGo suggests wg.Go for the Add/Done goroutine pattern.
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("sync.WaitGroup") || m["wg"].Type.Is("*sync.WaitGroup")).
		Report(`use $wg.Go(func() { ... })`).
		Suggest(`$wg.Go(func() { $body })`)
}

// TimeConstants replaces reference layout strings with the time package names.
func TimeConstants(m dsl.Matcher) {
	m.Match(`$t.Format("2006-01-02 15:04:05")`).
		Report(`use time.DateTime`).
		Suggest(`$t.Format(time.DateTime)`)
	m.Match(`$t.Format("2006-01-02")`).
		Report(`use time.DateOnly`).
		Suggest(`$t.Format(time.DateOnly)`)
	m.Match(`$t.Format("15:04:05")`).
		Report(`use time.TimeOnly`).
		Suggest(`$t.Format(time.TimeOnly)`)
}

// SlicesContains replaces hand-written membership loops.
func SlicesContains(m dsl.Matcher) {
	m.Match(`for _, $v := range $s { if $v == $x { return true } }; return false`).
		Report(`use slices.Contains($s, $x)`).
		Suggest(`return slices.Contains($s, $x)`)
}
