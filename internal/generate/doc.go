// Package generate turns rows into generation calls.
//
// It builds the image prompt for a row from the style prompt, the scene text,
// the context prompt and the selected characters, and the video prompt from
// the scene text and the row's main image. The resulting batch operations
// talk to a Backend; NewOpenRouterBackend adapts the llm client.
//
// A call that produces no image is reported as a *Failure whose message is
// stored on the row verbatim.
package generate
