// Package roster models the recurring characters of a storyboard.
//
// A Roster always holds exactly Slots characters; slots are identified by
// position and are cleared rather than removed. CharacterSet is the sorted,
// duplicate-free set of slot indices a row is associated with. The Random
// sentinel asks generation to pick a character at launch time.
//
// Roster values are copied on every edit, so a snapshot handed to a batch run
// never observes later changes.
package roster
