// Package config loads, normalizes, and validates storyboard configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the OPENROUTER_API_KEY environment
// fallback. The Config type centralizes the knobs the CLI needs: where the
// generation history lives, which models produce images and video prompts, and
// how many rows a bulk run drives at once.
//
// The API key is only checked when a command actually generates
// (RequireLLM), so editing a project works offline.
package config
