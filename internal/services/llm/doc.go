// Package llm provides an OpenRouter chat client for storyboard generation.
//
// The client covers the two calls storyboard needs:
//   - GenerateImage: a multimodal chat completion with image output, used for
//     scene images
//   - StreamCompletion: a streamed text completion, used for video prompts
//
// # Configuration
//
// Requires api_key and optionally base_url, image_model, text_model, referer,
// title and timeout. Generation commands check the key up front through
// config.RequireLLM.
//
// # Image Responses
//
// GenerateImage returns the first image the model produced along with the
// finish reason, any refusal and any text. A response without an image is not
// an error at this layer; callers decide how to report it.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Streams are retried only until the first delta has been delivered.
// Context cancellation aborts retries immediately.
package llm
