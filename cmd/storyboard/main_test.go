package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyboard/internal/board"
	"storyboard/internal/project"
	"storyboard/internal/roster"
	"storyboard/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "API key: set")

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestImportRequiresForceToReplace(t *testing.T) {
	env := setupCLITestEnv(t)
	script := writeScript(t, env)

	out := mustRunCLI(t, env, "import", script)
	requireContains(t, out, "Imported 3 rows")
	if _, err := os.Stat(env.projectPath); err != nil {
		t.Fatalf("expected project file: %v", err)
	}

	_, _, err := runCLI(t, env, "import", script)
	if err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	mustRunCLI(t, env, "import", script, "--force")

	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if len(rows) != 3 || rows[0].ID != 3 || rows[1].ID != 4 || rows[2].ID != 9 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].Primary != "Xin chào" || rows[0].Context != "market" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}

	table := mustRunCLI(t, env, "rows")
	requireContains(t, table, "lan3")
	requireContains(t, table, "Cảm ơn")
}

func TestImportWithExplicitColumns(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "plain.csv")
	if err := os.WriteFile(path, []byte("a,b\nlan1,Hello\nmai2,Bye\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, _, err := runCLI(t, env, "import", path); err == nil {
		t.Fatal("expected unknown header to require a mapping")
	}
	mustRunCLI(t, env, "import", path, "--columns", "tag=0,primary=1")
	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if len(rows) != 2 || rows[1].ID != 2 || rows[1].Primary != "Bye" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestImportChatMergesLines(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))

	transcript := filepath.Join(env.baseDir, "chat.json")
	if err := os.WriteFile(transcript, []byte(`[{"role":"user","content":"translate"},{"role":"model","content":"Guten Tag\nVielen Dank"}]`), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	out := mustRunCLI(t, env, "import-chat", transcript, "--column", "secondary")
	requireContains(t, out, "Merged script lines into 3 rows")

	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if rows[0].Secondary != "Guten Tag" || rows[1].Secondary != "Vielen Dank" || rows[2].Secondary != "Tschüss" {
		t.Fatalf("unexpected merge: %+v", rows)
	}
}

func TestRosterAndRowEdits(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))

	out := mustRunCLI(t, env, "roster", "set", "0", "--name", "Lan", "--style", "red scarf", "--image", writePNG(t, env, "lan.png"))
	requireContains(t, out, "1 rows updated")
	mustRunCLI(t, env, "roster", "default", "1")
	mustRunCLI(t, env, "roster", "set", "1", "--name", "Hùng")

	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if got := rows[0].Characters; len(got) != 1 || got[0] != 0 {
		t.Fatalf("row 3 characters = %v", got)
	}
	if got := rows[2].Characters; len(got) != 1 || got[0] != 1 {
		t.Fatalf("row 9 should fall back to the default, got %v", got)
	}

	show := mustRunCLI(t, env, "roster", "show")
	requireContains(t, show, "Lan")
	requireContains(t, show, "red scarf")

	out = mustRunCLI(t, env, "row", "characters", "3", "random")
	requireContains(t, out, "(random)")
	saved, err := project.Load(env.projectPath)
	if err != nil {
		t.Fatalf("load project: %v", err)
	}
	if _, row := board.Find(saved.Rows, 3); row == nil || !row.Characters.Equal(roster.NewSet(roster.Random)) {
		t.Fatalf("saved row 3 selection = %+v", row)
	}

	// Every later command reloads the project, which re-derives row 3.
	mustRunCLI(t, env, "row", "tag", "4", "lan44")
	mustRunCLI(t, env, "row", "context", "9", "foggy harbor at dawn")
	mustRunCLI(t, env, "row", "attach", "9", writePNG(t, env, "frame.png"))

	rows = decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if got := rows[0].Characters; len(got) != 1 || got[0] != 0 {
		t.Fatalf("row 3 after reload = %v, want [0]", got)
	}
	if rows[1].ID != 4 || rows[1].Tag != "lan44" || len(rows[1].Characters) != 1 || rows[1].Characters[0] != 0 {
		t.Fatalf("row 4 after tag edit: %+v", rows[1])
	}
	if rows[2].Context != "foggy harbor at dawn" || rows[2].Assets != 1 || rows[2].MainAsset != 0 {
		t.Fatalf("row 9 after edits: %+v", rows[2])
	}

	if _, _, err := runCLI(t, env, "row", "main", "9", "3"); err == nil {
		t.Fatal("expected out of range asset index to fail")
	}
	if _, _, err := runCLI(t, env, "row", "tag", "77", "lan"); err == nil {
		t.Fatal("expected unknown row to fail")
	}

	mustRunCLI(t, env, "roster", "clear", "1")
	rows = decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if got := rows[0].Characters; len(got) != 1 || got[0] != 0 {
		t.Fatalf("roster change should re-derive row 3 characters, got %v", got)
	}

	exported := filepath.Join(env.baseDir, "export", "row9.png")
	mustRunCLI(t, env, "row", "export", "9", exported)
	if data, err := os.ReadFile(exported); err != nil || !strings.HasPrefix(string(data), "\x89PNG") {
		t.Fatalf("exported asset: %q %v", data, err)
	}
}

func TestRosterApplyFile(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))
	writePNG(t, env, "hung.png")

	rosterPath := filepath.Join(env.baseDir, "roster.yaml")
	content := "default: 0\ncharacters:\n  - slot: 0\n    name: Lan\n  - slot: 1\n    name: Hung\n    style: glasses\n    images: [hung.png]\n"
	if err := os.WriteFile(rosterPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	out := mustRunCLI(t, env, "roster", "apply", rosterPath)
	requireContains(t, out, "Applied 2 characters; 3 rows updated")

	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	want := []int{0, 1, 0}
	for i, row := range rows {
		if len(row.Characters) != 1 || row.Characters[0] != want[i] {
			t.Fatalf("row %d characters = %v, want [%d]", row.ID, row.Characters, want[i])
		}
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))

	out := mustRunCLI(t, env, "generate", "images")
	requireContains(t, out, "images: 3 succeeded, 0 failed (3 rows in 2 groups)")
	out = mustRunCLI(t, env, "generate", "images")
	requireContains(t, out, "No rows need images")

	out = mustRunCLI(t, env, "generate", "prompts")
	requireContains(t, out, "video prompts: 3 succeeded")

	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	for _, row := range rows {
		if row.Assets != 1 || row.VideoPrompt != "Wide shot of the scene." || row.Error != "" {
			t.Fatalf("row %d after generation: %+v", row.ID, row)
		}
		if !strings.Contains(row.LastPrompt, "Scene: "+row.Primary) {
			t.Fatalf("row %d prompt %q lacks scene text", row.ID, row.LastPrompt)
		}
	}

	out = mustRunCLI(t, env, "generate", "row", "3", "--option", "closer shot", "--manual", "add rain")
	requireContains(t, out, "Row 3: new image (1/2)")
	out = mustRunCLI(t, env, "generate", "prompt", "3")
	requireContains(t, out, "Wide shot of the scene.")

	images, streams := env.server.calls()
	if images != 4 || streams != 4 {
		t.Fatalf("server calls images=%d streams=%d, want 4 and 4", images, streams)
	}

	history := mustRunCLI(t, env, "history", "--limit", "0")
	requireContains(t, history, "video_prompt")
	requireContains(t, history, "Totals: 8 succeeded, 0 blocked")
	byRow := mustRunCLI(t, env, "history", "--row", "3", "--json")
	requireContains(t, byRow, "Adjustments: closer shot")
}

func TestGeneratePromptWithoutAssetFails(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))
	mustRunCLI(t, env, "row", "video", "4", "hand written")

	_, _, err := runCLI(t, env, "generate", "prompt", "4")
	if err == nil || !strings.Contains(err.Error(), "main image is required") {
		t.Fatalf("expected missing asset error, got %v", err)
	}
	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if rows[1].VideoPrompt != "hand written" {
		t.Fatalf("video prompt should be kept, got %q", rows[1].VideoPrompt)
	}
	_, streams := env.server.calls()
	if streams != 0 {
		t.Fatalf("no stream request expected, got %d", streams)
	}
	requireContains(t, mustRunCLI(t, env, "history"), "rejected")
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithAPIKey(""))
	mustRunCLI(t, env, "import", writeScript(t, env))

	_, _, err := runCLI(t, env, "generate", "images")
	if err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected api key error, got %v", err)
	}
}

func TestProjectSettingsAndSourceEdits(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "import", writeScript(t, env))

	if _, _, err := runCLI(t, env, "project", "set"); err == nil {
		t.Fatal("expected project set without flags to fail")
	}
	mustRunCLI(t, env, "project", "set", "--name", "Market Day", "--video-note", "slow pan")
	show := mustRunCLI(t, env, "project", "show")
	requireContains(t, show, "Name: Market Day")
	requireContains(t, show, "Video prompt note: slow pan")
	requireContains(t, show, "Rows: 3")

	out := mustRunCLI(t, env, "row", "source", "4", "primary", "Xin lỗi")
	requireContains(t, out, "Row 4 primary set")
	if _, _, err := runCLI(t, env, "row", "source", "4", "subtitle", "x"); err == nil {
		t.Fatal("expected unknown source field to fail")
	}
	rows := decodeRows(t, mustRunCLI(t, env, "rows", "--json"))
	if rows[1].Primary != "Xin lỗi" || rows[1].Secondary != "Danke" {
		t.Fatalf("row 4 after source edit: %+v", rows[1])
	}

	copyPath := filepath.Join(env.baseDir, "copy.json")
	requireContains(t, mustRunCLI(t, env, "project", "save-as", copyPath), "Saved 3 rows")
	copyEnv := *env
	copyEnv.projectPath = copyPath
	requireContains(t, mustRunCLI(t, &copyEnv, "project", "show"), "Name: Market Day")
}
