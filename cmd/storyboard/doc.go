// Package main hosts the storyboard CLI.
//
// Every command opens the project file named by --project, applies one change
// through a studio session and saves the project again. Generation commands
// also open the generation history database and print live progress when
// stdout is a terminal. Keep commands thin: behaviour belongs in the internal
// packages.
package main
