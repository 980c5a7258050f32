package generate

import (
	"context"

	"storyboard/internal/batch"
	"storyboard/internal/board"
)

// ImageOperation generates one image per row and emits it as an asset.
func ImageOperation(backend Backend, in Inputs, adj Adjustments) batch.Operation {
	return func(ctx context.Context, row *board.Row, emit func(board.Event)) error {
		prompt, images := BuildImagePrompt(row, in, adj)
		out, err := backend.GenerateImage(ctx, Request{Prompt: prompt, Images: images})
		if err != nil {
			return transportFailure(err, prompt)
		}
		if failure := ClassifyOutput(out); failure != nil {
			failure.Prompt = prompt
			return failure
		}
		emit(board.AssetProduced(row.ID, out.Asset, prompt))
		return nil
	}
}

// VideoPromptOperation streams a video prompt for the row's main asset,
// emitting every chunk as it arrives.
func VideoPromptOperation(backend Backend, in Inputs) batch.Operation {
	return func(ctx context.Context, row *board.Row, emit func(board.Event)) error {
		mainAsset, ok := row.MainAssetValue()
		if !ok {
			return &Failure{Kind: FailurePrecondition, Message: MissingMainAsset}
		}
		prompt := BuildVideoPrompt(row, in.VideoNote)
		err := backend.StreamText(ctx, Request{Prompt: prompt, Images: []string{mainAsset}}, func(chunk string) error {
			emit(board.Chunk(row.ID, chunk))
			return nil
		})
		if err != nil {
			return promptFailure(err, prompt)
		}
		return nil
	}
}

// ImageJob is the bulk image job: rows with no assets and no error.
func ImageJob(backend Backend, in Inputs, concurrency int) batch.Job {
	return batch.Job{
		Name:        "image",
		Status:      board.StatusGeneratingAsset,
		Select:      batch.NeedsAsset,
		Operation:   ImageOperation(backend, in, Adjustments{}),
		Concurrency: concurrency,
	}
}

// VideoPromptJob is the bulk video prompt job: rows with an asset, no video
// prompt and no error.
func VideoPromptJob(backend Backend, in Inputs, concurrency int) batch.Job {
	return batch.Job{
		Name:        "video_prompt",
		Status:      board.StatusGeneratingPrompt,
		Select:      batch.NeedsVideoPrompt,
		Operation:   VideoPromptOperation(backend, in),
		Concurrency: concurrency,
	}
}
