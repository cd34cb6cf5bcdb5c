package config

import (
  "path/filepath"
  "strings"
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

const jsonJob = `{
  "correction": { "clip_limit": 2.5, "tiles": [4, 6], "white_balance_strength": 0.5 },
  "video": { "lossless": false, "quality": 75, "strict": true, "threaded": true, "batch_size": 4 },
  "output": { "dir": "out/", "report": "report.png" },
  "input": { "files": [ "a.png", " ", "clip.webp" ] },
  "filters": [ { "name": "CLAHE", "options": [ { "key": "cliplimit", "value": "2.0" } ] } ]
}`

const xmlJob = `<?xml version="1.0" encoding="UTF-8"?>
<job>
  <correction>
    <cliplimit>2.5</cliplimit>
    <tiles>4,6</tiles>
    <whitebalancestrength>0.5</whitebalancestrength>
  </correction>
  <video>
    <lossless>false</lossless>
    <quality>75</quality>
    <strict>yes</strict>
    <threaded>1</threaded>
    <batchsize>4</batchsize>
  </video>
  <output>
    <dir>out/</dir>
    <report>report.png</report>
  </output>
  <input>
    <files><path>a.png</path><path>clip.webp</path></files>
  </input>
  <filters>
    <filter>
      <name>clahe</name>
      <option><key>cliplimit</key><value>2.0</value></option>
    </filter>
  </filters>
</job>`

const yamlJob = `
correction:
  clip_limit: 2.5
  tiles: [4, 6]
  white_balance_strength: 0.5
video:
  lossless: false
  quality: 75
  strict: true
  threaded: true
  batch_size: 4
output:
  dir: out/
  report: report.png
input:
  files:
    - a.png
    - clip.webp
filters:
  - name: clahe
    options:
      - key: cliplimit
        value: "2.0"
`

func assertJob(t *testing.T, cfg *Config) {
  t.Helper()
  v, ok := cfg.GetConfigValueFloat(SECTION_CORRECTION, KEY_CLIP_LIMIT)
  require.True(t, ok)
  assert.Equal(t, 2.5, v)
  tiles, ok := cfg.GetConfigValueIntSeq(SECTION_CORRECTION, KEY_TILES)
  require.True(t, ok)
  assert.Equal(t, []int64{4, 6}, tiles)
  v, _ = cfg.GetConfigValueFloat(SECTION_CORRECTION, KEY_WB_STRENGTH)
  assert.Equal(t, 0.5, v)

  b, ok := cfg.GetConfigValueBool(SECTION_VIDEO, KEY_LOSSLESS)
  require.True(t, ok)
  assert.False(t, b)
  q, _ := cfg.GetConfigValueInt(SECTION_VIDEO, KEY_QUALITY)
  assert.Equal(t, int64(75), q)
  b, _ = cfg.GetConfigValueBool(SECTION_VIDEO, KEY_STRICT)
  assert.True(t, b)
  b, _ = cfg.GetConfigValueBool(SECTION_VIDEO, KEY_THREADED)
  assert.True(t, b)
  n, _ := cfg.GetConfigValueInt(SECTION_VIDEO, KEY_BATCH_SIZE)
  assert.Equal(t, int64(4), n)

  dir, _ := cfg.GetConfigValueText(SECTION_OUTPUT, KEY_OUTPUT_DIR)
  assert.Equal(t, "out", dir)
  report, _ := cfg.GetConfigValueText(SECTION_OUTPUT, KEY_REPORT)
  assert.Equal(t, "report.png", report)
  path, ok := cfg.GetConfigValueText(SECTION_OUTPUT, KEY_OUTPUT_PATH)
  assert.True(t, ok)
  assert.Empty(t, path)

  files, ok := cfg.GetConfigValueTextSeq(SECTION_INPUT, KEY_INPUT_FILES)
  require.True(t, ok)
  assert.Equal(t, []string{"a.png", "clip.webp"}, files)

  require.Equal(t, 1, cfg.GetConfigFilterLength())
  name, ok := cfg.GetConfigFilterName(0)
  require.True(t, ok)
  assert.Equal(t, "clahe", name)
  options, _ := cfg.GetConfigFilterOptions(0)
  assert.Equal(t, [][]string{{"cliplimit", "2.0"}}, options)
  assert.Equal(t, []string{"clahe:cliplimit=2.0"}, cfg.GetConfigFilterDefinitions())
}

func TestImportConfig(t *testing.T) {
  for name, source := range map[string]string{"json": jsonJob, "xml": xmlJob, "yaml": yamlJob} {
    t.Run(name, func(t *testing.T) {
      cfg, err := ImportConfig(strings.NewReader(source))
      require.NoError(t, err)
      assertJob(t, cfg)
    })
  }
}

func TestImportConfigDefaults(t *testing.T) {
  for name, source := range map[string]string{"json": "{}", "xml": "<job></job>", "yaml": "input:\n  files: []\n"} {
    t.Run(name, func(t *testing.T) {
      cfg, err := ImportConfig(strings.NewReader(source))
      require.NoError(t, err)
      v, _ := cfg.GetConfigValueFloat(SECTION_CORRECTION, KEY_CLIP_LIMIT)
      assert.Equal(t, float64(DefaultClipLimit), v)
      tiles, _ := cfg.GetConfigValueIntSeq(SECTION_CORRECTION, KEY_TILES)
      assert.Equal(t, []int64{DefaultTilesX, DefaultTilesY}, tiles)
      v, _ = cfg.GetConfigValueFloat(SECTION_CORRECTION, KEY_WB_STRENGTH)
      assert.Equal(t, float64(DefaultWBStrength), v)
      b, _ := cfg.GetConfigValueBool(SECTION_VIDEO, KEY_LOSSLESS)
      assert.Equal(t, DefaultLossless, b)
      q, _ := cfg.GetConfigValueInt(SECTION_VIDEO, KEY_QUALITY)
      assert.Equal(t, int64(DefaultQuality), q)
      n, _ := cfg.GetConfigValueInt(SECTION_VIDEO, KEY_BATCH_SIZE)
      assert.Equal(t, int64(DefaultBatchSize()), n)
      assert.Equal(t, 0, cfg.GetConfigFilterLength())
    })
  }
}

func TestImportConfigZeroClipLimit(t *testing.T) {
  cfg, err := ImportConfig(strings.NewReader(`{"correction": {"clip_limit": 0, "tiles": [3]}}`))
  require.NoError(t, err)
  v, ok := cfg.GetConfigValueFloat(SECTION_CORRECTION, KEY_CLIP_LIMIT)
  require.True(t, ok)
  assert.Equal(t, 0.0, v)
  tiles, _ := cfg.GetConfigValueIntSeq(SECTION_CORRECTION, KEY_TILES)
  assert.Equal(t, []int64{3, 3}, tiles)
}

func TestImportConfigErrors(t *testing.T) {
  sources := map[string]string{
    "empty":          "  \n ",
    "broken json":    `{"correction": `,
    "broken xml":     `<job><correction>`,
    "broken yaml":    "just some text",
    "clip limit":     `{"correction": {"clip_limit": -1}}`,
    "tiles range":    `{"correction": {"tiles": [0, 8]}}`,
    "tiles count":    `{"correction": {"tiles": [1, 2, 3]}}`,
    "strength":       "<job><correction><whitebalancestrength>2</whitebalancestrength></correction></job>",
    "quality":        "video:\n  quality: 101\n",
    "batch size":     `{"video": {"batch_size": 0}}`,
    "filter name":    `{"filters": [{"options": [{"key": "cliplimit", "value": "1"}]}]}`,
  }
  for name, source := range sources {
    t.Run(name, func(t *testing.T) {
      _, err := ImportConfig(strings.NewReader(source))
      assert.Error(t, err)
    })
  }
}

func TestGetConfigValueMissing(t *testing.T) {
  cfg, err := ImportConfig(strings.NewReader("{}"))
  require.NoError(t, err)
  _, ok := cfg.GetConfigValueBool(SECTION_CORRECTION, KEY_CLIP_LIMIT)
  assert.False(t, ok)
  _, ok = cfg.GetConfigValueText("unknown", "key")
  assert.False(t, ok)
  _, ok = cfg.GetConfigFilterName(3)
  assert.False(t, ok)
}

func TestAssembleOutputPath(t *testing.T) {
  assert.Equal(t, filepath.Join("photos", "beach_corrected.jpg"), AssembleOutputPath(filepath.Join("photos", "beach.jpg"), ""))
  assert.Equal(t, filepath.Join("out", "clip_corrected.webp"), AssembleOutputPath(filepath.Join("in", "clip.webp"), "out"))
  assert.Equal(t, filepath.Join(".", "noext_corrected"), AssembleOutputPath("noext", ""))
}
