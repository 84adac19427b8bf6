// Package codeindex 维护源码树的函数/类符号索引，并为技术类回答生成代码引用。
//
// 索引在首次查询时构建；之后每次查询前比较文件修改时间快照，
// 任一文件变更、新增或删除都会触发整体重建。
package codeindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/persona-assistant/internal/pkg/textutil"
	"github.com/kart-io/persona-assistant/pkg/errors"
	"github.com/kart-io/persona-assistant/pkg/infra/pool"
)

// versionLength 索引版本号长度。
const versionLength = 12

// skipDirs 不参与索引的依赖与构建目录。
var skipDirs = map[string]bool{
	"vendor":        true,
	"node_modules":  true,
	"__pycache__":   true,
	"venv":          true,
	"site-packages": true,
	"dist":          true,
	"build":         true,
}

// Config 索引配置。
type Config struct {
	// Root 源码根目录。
	Root string
	// LinkBase 外部链接前缀，例如 https://github.com/owner/repo/blob/main。
	LinkBase string
	// CheckModTime 查询前是否检查文件变更。
	CheckModTime bool
	// MaxResults 调用方未指定时的默认返回数量。
	MaxResults int
}

type entry struct {
	sym       Symbol
	lowerName string
	lowerBody string
}

type sourceFile struct {
	abs   string
	rel   string
	mtime int64
}

type state struct {
	entries  []entry
	snapshot map[string]int64
	version  string
}

// Index 源码符号索引。
type Index struct {
	cfg    Config
	parser Parser
	pool   *pool.Pool

	mu    sync.RWMutex
	state *state
}

// New 创建索引。p 为空时顺序解析文件。
func New(cfg Config, parser Parser, p *pool.Pool) *Index {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Index{cfg: cfg, parser: parser, pool: p}
}

// Build 遍历源码树并整体替换索引。
func (x *Index) Build(ctx context.Context) error {
	files, err := x.scan()
	if err != nil {
		return err
	}
	return x.build(ctx, files)
}

func (x *Index) build(ctx context.Context, files []sourceFile) error {
	perFile := make([][]entry, len(files))
	parse := func(i int) {
		perFile[i] = x.parseFile(ctx, files[i])
	}

	if x.pool != nil {
		if err := x.pool.Run(ctx, len(files), parse); err != nil {
			return fmt.Errorf("build code index: %w", err)
		}
	} else {
		for i := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			parse(i)
		}
	}

	st := &state{snapshot: make(map[string]int64, len(files))}
	for i, f := range files {
		st.entries = append(st.entries, perFile[i]...)
		st.snapshot[f.rel] = f.mtime
	}
	st.version = versionOf(st.snapshot)

	x.mu.Lock()
	x.state = st
	x.mu.Unlock()

	logger.Infow("code index built", "root", x.cfg.Root, "files", len(files), "symbols", len(st.entries), "version", st.version)
	return nil
}

func (x *Index) parseFile(ctx context.Context, f sourceFile) []entry {
	src, err := os.ReadFile(f.abs)
	if err != nil {
		logger.Warnw("skipping unreadable source file", "file", f.rel, "error", errors.ErrParseFailure.WithCause(err).Error())
		return nil
	}
	defs, err := x.parser.Parse(ctx, f.rel, src)
	if err != nil {
		logger.Warnw("skipping unparseable source file", "file", f.rel, "error", errors.ErrParseFailure.WithCause(err).Error())
		return nil
	}

	lines := strings.Split(string(src), "\n")
	entries := make([]entry, 0, len(defs))
	for _, d := range defs {
		start, end := d.LineStart, d.LineEnd
		if start < 1 || end < start || end > len(lines) {
			continue
		}
		content := strings.Join(lines[start-1:end], "\n")
		entries = append(entries, entry{
			sym: Symbol{
				File:         f.rel,
				Name:         d.Name,
				Kind:         d.Kind,
				LineStart:    start,
				LineEnd:      end,
				Content:      content,
				Citation:     Citation(f.rel, start, end),
				ExternalLink: ExternalLink(x.cfg.LinkBase, f.rel, start, end),
			},
			lowerName: strings.ToLower(d.Name),
			lowerBody: strings.ToLower(content),
		})
	}
	return entries
}

// scan 按字典序遍历源码树，返回可解析的文件。
func (x *Index) scan() ([]sourceFile, error) {
	root := x.cfg.Root
	var files []sourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() || !x.parser.Supports(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, sourceFile{abs: path, rel: filepath.ToSlash(rel), mtime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source tree %s: %w", root, err)
	}
	return files, nil
}

// versionOf 对排序后的 (path, mtime) 计算截断哈希。
func versionOf(snapshot map[string]int64) string {
	paths := make([]string, 0, len(snapshot))
	for p := range snapshot {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s\x00%d\n", p, snapshot[p])
	}
	return hex.EncodeToString(h.Sum(nil))[:versionLength]
}

func stale(snapshot map[string]int64, files []sourceFile) bool {
	if len(files) != len(snapshot) {
		return true
	}
	for _, f := range files {
		prev, ok := snapshot[f.rel]
		if !ok || f.mtime != prev {
			return true
		}
	}
	return false
}

// current 返回最新状态，必要时重建。
func (x *Index) current(ctx context.Context) (*state, error) {
	x.mu.RLock()
	st := x.state
	x.mu.RUnlock()

	if st != nil && !x.cfg.CheckModTime {
		return st, nil
	}

	files, err := x.scan()
	if err != nil {
		return nil, err
	}
	if st != nil && !stale(st.snapshot, files) {
		return st, nil
	}
	if st != nil {
		logger.Debugw("source tree changed, rebuilding code index", "root", x.cfg.Root)
	}
	if err := x.build(ctx, files); err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.state, nil
}

// Version 返回当前索引版本。
func (x *Index) Version(ctx context.Context) (string, error) {
	st, err := x.current(ctx)
	if err != nil {
		return "", err
	}
	return st.version, nil
}

type scored struct {
	sym   Symbol
	score int
}

func rank(items []scored, max int) []Symbol {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})
	if len(items) > max {
		items = items[:max]
	}
	out := make([]Symbol, len(items))
	for i, it := range items {
		out[i] = it.sym
	}
	return out
}

func (x *Index) limit(max int) int {
	if max <= 0 {
		return x.cfg.MaxResults
	}
	return max
}

// SearchByNameOrContent 名称包含查询串 +10，源码包含任一查询词 +5。
func (x *Index) SearchByNameOrContent(ctx context.Context, query string, max int) ([]Symbol, error) {
	st, err := x.current(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []Symbol{}, nil
	}
	tokens := textutil.Words(q)

	var items []scored
	for _, e := range st.entries {
		score := 0
		if strings.Contains(e.lowerName, q) {
			score += 10
		}
		for _, tok := range tokens {
			if strings.Contains(e.lowerBody, tok) {
				score += 5
				break
			}
		}
		if score > 0 {
			items = append(items, scored{sym: e.sym, score: score})
		}
	}
	return rank(items, x.limit(max)), nil
}

// SearchByKeywords 每个关键词命中名称 +15，命中源码 +5，累加。
func (x *Index) SearchByKeywords(ctx context.Context, keywords []string, max int) ([]Symbol, error) {
	st, err := x.current(ctx)
	if err != nil {
		return nil, err
	}

	kws := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			kws = append(kws, k)
		}
	}

	var items []scored
	for _, e := range st.entries {
		score := 0
		for _, k := range kws {
			if strings.Contains(e.lowerName, k) {
				score += 15
			}
			if strings.Contains(e.lowerBody, k) {
				score += 5
			}
		}
		if score > 0 {
			items = append(items, scored{sym: e.sym, score: score})
		}
	}
	return rank(items, x.limit(max)), nil
}

// Size 返回当前符号数量。
func (x *Index) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.state == nil {
		return 0
	}
	return len(x.state.entries)
}
