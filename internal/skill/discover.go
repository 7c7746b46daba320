package skill

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Loader discovers skill source files from an ordered list of pool
// directories (core first, sandbox second) and turns each into a
// *Skill via build, a caller-supplied adapter (such as one backed by the
// yaegi interpreter in internal/autopoiesis; core-pool skills are
// ordinary compiled Go registered directly via MustRegister and never
// pass through this discovery path).
//
// Discovery rule, per §4.D: include files matching "*_skill.go" and
// "generated_skill_*.go"; exclude the abstract base module.
type Loader struct {
	registry  *Registry
	dirs      []string // ordered core-first, sandbox-second
	build     func(path string) (*Skill, error)
	baseModule string

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dirtyCh  chan struct{}
}

// NewLoader constructs a Loader over registry, scanning dirs in order.
// baseModule names the abstract base file to exclude from discovery
// (e.g. "base_skill.go").
func NewLoader(registry *Registry, dirs []string, baseModule string, build func(path string) (*Skill, error)) *Loader {
	return &Loader{
		registry:   registry,
		dirs:       dirs,
		build:      build,
		baseModule: baseModule,
		dirtyCh:    make(chan struct{}, 1),
	}
}

// DiscoverAll scans every configured directory in order and registers
// each matching file's skill, first-wins across directories.
func (l *Loader) DiscoverAll() error {
	for _, dir := range l.dirs {
		if err := l.discoverDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) discoverDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == l.baseModule {
			continue
		}
		if !isSkillFile(name) {
			continue
		}
		path := filepath.Join(dir, name)
		s, err := l.build(path)
		if err != nil {
			return err
		}
		l.registry.Register(s)
	}
	return nil
}

func isSkillFile(name string) bool {
	if !strings.HasSuffix(name, ".go") {
		return false
	}
	if strings.HasSuffix(name, "_skill.go") {
		return true
	}
	if strings.HasPrefix(name, "generated_skill_") {
		return true
	}
	return false
}

// WatchSandbox installs an fsnotify watch on the sandbox skills
// directory; this watch is the only hot-reload signal, and no
// environment variable (such as SANDBOX_MCP_SKILLS_DIR) is read. Events
// are coalesced into a single-slot dirty channel; callers poll Dirty()
// at list-tools time and call ReloadSandbox when it is set.
func (l *Loader) WatchSandbox(sandboxDir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(sandboxDir); err != nil {
		w.Close()
		return err
	}
	l.mu.Lock()
	l.watcher = w
	l.mu.Unlock()

	go func() {
		for {
			select {
			case _, ok := <-w.Events:
				if !ok {
					return
				}
				select {
				case l.dirtyCh <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// Dirty reports whether a hot-reload-worthy change has been observed
// since the last ReloadSandbox call.
func (l *Loader) Dirty() bool {
	select {
	case <-l.dirtyCh:
		return true
	default:
		return false
	}
}

// ReloadSandbox re-scans only the last directory in dirs (the sandbox
// pool, by convention), using ReplaceSandboxSkill semantics so updated
// sandbox skills take effect even though a name already exists.
func (l *Loader) ReloadSandbox() error {
	if len(l.dirs) == 0 {
		return nil
	}
	sandboxDir := l.dirs[len(l.dirs)-1]
	entries, err := os.ReadDir(sandboxDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || e.Name() == l.baseModule || !isSkillFile(e.Name()) {
			continue
		}
		s, err := l.build(filepath.Join(sandboxDir, e.Name()))
		if err != nil {
			return err
		}
		l.registry.ReplaceSandboxSkill(s)
	}
	return nil
}

// Close releases the fsnotify watcher, if any.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
