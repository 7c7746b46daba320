// Package core implements the fourteen whitelisted filesystem skills
// (SPEC_FULL.md §4.D core pool): move, delete, copy, read, rename,
// write, scan, compress, uncompress, create_file, create_folder,
// get_admin, connect_folders, remove. Unlike the sandbox pool, these
// are ordinary compiled Go registered directly with MustRegister; they
// never pass through skill.Loader's source-file discovery.
//
// Grounded on _examples/original_source/infrastructure/mcp_skills/
// (move_skill.py, scan_skill.py, copy_skill.py, compress_skill.py,
// uncompress_skill.py, create_file_skill.py, create_folder_skill.py,
// get_admin_skill.py, remove_file_skill.py, rename_skill.py) and
// infrastructure/mcp_skills/mcp_base_skill.py for the shared response
// envelope. "read", "write", and "connect_folders" have no Python
// counterpart in original_source and are supplemented in the same
// idiom, grounded on create_file_skill.py (content I/O) and
// create_folder_skill.py (folder-to-folder relation) respectively.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cotsmith/internal/fact"
	"cotsmith/internal/skill"
)

// wireResponse mirrors the skill response envelope decoded by
// internal/effector's Gateway (SPEC_FULL.md §6 "Skill response
// schema").
type wireResponse struct {
	HumanReadable string       `json:"human_readable"`
	Metadata      wireMetadata `json:"metadata"`
}

type wireMetadata struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	PDDLDelta string `json:"pddl_delta,omitempty"`
	Error     string `json:"error,omitempty"`
}

func success(message, pddlDelta string) (string, error) {
	b, err := json.Marshal(wireResponse{
		HumanReadable: message,
		Metadata:      wireMetadata{Status: "success", Message: message, PDDLDelta: pddlDelta},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func failure(errMsg string) (string, error) {
	b, err := json.Marshal(wireResponse{
		HumanReadable: "error: " + errMsg,
		Metadata:      wireMetadata{Status: "error", Error: errMsg},
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// resolve joins root with a PDDL-escaped relative path, unescaping
// "_dot_" back to "." at the filesystem boundary, mirroring
// mcp_base_skill.py's _safe_path.
func resolve(root string, parts ...string) string {
	full := make([]string, 0, len(parts)+1)
	full = append(full, root)
	for _, p := range parts {
		full = append(full, fact.Unescape(p))
	}
	return filepath.Join(full...)
}

// Register builds the fourteen core-pool skills, each resolving
// file/folder arguments underneath root (a sandbox's storage
// directory), and registers them into r via MustRegister.
func Register(r *skill.Registry, root string) {
	for _, s := range []*skill.Skill{
		moveSkill(root),
		copySkill(root),
		scanSkill(root),
		compressSkill(root),
		uncompressSkill(root),
		createFileSkill(root),
		createFolderSkill(root),
		getAdminSkill(),
		renameSkill(root),
		removeSkill(root, "remove"),
		removeSkill(root, "delete"),
		readSkill(root),
		writeSkill(root),
		connectFoldersSkill(root),
	} {
		r.MustRegister(s)
	}
}

// moveSkill relocates a file between two folders.
//
// Grounded on infrastructure/mcp_skills/move_skill.py.
func moveSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "move",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "from_folder", "to_folder"},
			Properties: map[string]skill.Property{
				"file_name":   {Type: "string", Description: "file name (PDDL-escaped)"},
				"from_folder": {Type: "string", Description: "source folder name"},
				"to_folder":   {Type: "string", Description: "destination folder name"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			fromFolder, _ := stringArg(args, "from_folder")
			toFolder, _ := stringArg(args, "to_folder")

			src := resolve(root, fromFolder, fileName)
			dst := resolve(root, toFolder, fileName)
			if err := os.Rename(src, dst); err != nil {
				return failure(fmt.Sprintf("move failed: %v", err))
			}
			message := fmt.Sprintf("moved %s from %s to %s", fact.Unescape(fileName), fact.Unescape(fromFolder), fact.Unescape(toFolder))
			delta := fmt.Sprintf("-(at %s %s) (at %s %s)", fileName, fromFolder, fileName, toFolder)
			return success(message, delta)
		},
	}
}

// copySkill duplicates a file into a new location, failing if the
// destination already exists.
//
// Grounded on infrastructure/mcp_skills/copy_skill.py.
func copySkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "copy",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"source_file", "source_folder", "target_file", "target_folder"},
			Properties: map[string]skill.Property{
				"source_file":   {Type: "string"},
				"source_folder": {Type: "string"},
				"target_file":   {Type: "string"},
				"target_folder": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			srcFile, _ := stringArg(args, "source_file")
			srcFolder, _ := stringArg(args, "source_folder")
			dstFile, _ := stringArg(args, "target_file")
			dstFolder, _ := stringArg(args, "target_folder")

			srcPath := resolve(root, srcFolder, srcFile)
			dstPath := resolve(root, dstFolder, dstFile)

			if _, err := os.Stat(srcPath); err != nil {
				return failure(fmt.Sprintf("source file %s does not exist", fact.Unescape(srcFile)))
			}
			if _, err := os.Stat(dstPath); err == nil {
				return failure(fmt.Sprintf("target file %s already exists", fact.Unescape(dstFile)))
			}
			if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
				return failure(fmt.Sprintf("cannot create target folder: %v", err))
			}
			data, err := os.ReadFile(srcPath)
			if err != nil {
				return failure(fmt.Sprintf("copy failed: %v", err))
			}
			if err := os.WriteFile(dstPath, data, 0o644); err != nil {
				return failure(fmt.Sprintf("copy failed: %v", err))
			}

			message := fmt.Sprintf("copied %s to %s", fact.Unescape(srcFile), fact.Unescape(dstFile))
			delta := fmt.Sprintf("(at %s %s) (is_copied %s %s)", dstFile, dstFolder, srcFile, dstFile)
			return success(message, delta)
		},
	}
}

// scanSkill lists a folder's top-level contents and emits presence
// facts for each entry, plus a scanned marker for the folder itself.
//
// Grounded on infrastructure/mcp_skills/scan_skill.py; the recursive
// path-rewriting around sandbox run directories in the original has no
// equivalent here since cotsmith's sandbox already isolates storage
// per attempt, so scan only ever sees flat, single-level names.
func scanSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "scan",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"folder"},
			Properties: map[string]skill.Property{
				"folder": {Type: "string", Description: "folder name to scan"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			folder, _ := stringArg(args, "folder")
			target := resolve(root, folder)

			entries, err := os.ReadDir(target)
			if err != nil {
				return failure(fmt.Sprintf("folder %s does not exist", fact.Unescape(folder)))
			}

			var facts []string
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), ".") {
					continue
				}
				encoded := fact.Escape(e.Name())
				if e.IsDir() {
					facts = append(facts, fmt.Sprintf("(is_created %s)", encoded))
				} else {
					facts = append(facts, fmt.Sprintf("(at %s %s)", encoded, folder))
				}
			}
			facts = append(facts, fmt.Sprintf("(scanned %s)", folder))

			message := fmt.Sprintf("scanned folder %s, found %d entries", fact.Unescape(folder), len(entries))
			return success(message, strings.Join(facts, " "))
		},
	}
}

// compressSkill simulates archiving a file (SPEC_FULL.md tracks the
// PDDL-visible effect, not archive-format fidelity, matching the
// original's own "simplified" comment).
//
// Grounded on infrastructure/mcp_skills/compress_skill.py.
func compressSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "compress",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "folder", "archive_name"},
			Properties: map[string]skill.Property{
				"file_name":    {Type: "string"},
				"folder":       {Type: "string"},
				"archive_name": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			folder, _ := stringArg(args, "folder")
			archiveName, _ := stringArg(args, "archive_name")

			srcPath := resolve(root, folder, fileName)
			if _, err := os.Stat(srcPath); err != nil {
				return failure(fmt.Sprintf("file %s does not exist", fact.Unescape(fileName)))
			}
			archivePath := resolve(root, folder, archiveName)
			if err := os.WriteFile(archivePath, []byte{}, 0o644); err != nil {
				return failure(fmt.Sprintf("compress failed: %v", err))
			}

			message := fmt.Sprintf("compressed %s into %s", fact.Unescape(fileName), fact.Unescape(archiveName))
			delta := fmt.Sprintf("(is_created %s) (at %s %s) (is_compressed %s %s)", archiveName, archiveName, folder, fileName, archiveName)
			return success(message, delta)
		},
	}
}

// uncompressSkill extracts one named file from an archive.
//
// Grounded on infrastructure/mcp_skills/uncompress_skill.py, trimmed to
// the single-named-file case (the original's "*" extract-all branch
// emits a placeholder "?any_file" delta that is not a legal fact, so
// it is not reproduced here).
func uncompressSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "uncompress",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"archive", "folder", "file"},
			Properties: map[string]skill.Property{
				"archive": {Type: "string"},
				"folder":  {Type: "string"},
				"file":    {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			archive, _ := stringArg(args, "archive")
			folder, _ := stringArg(args, "folder")
			file, _ := stringArg(args, "file")

			archivePath := resolve(root, folder, archive)
			if _, err := os.Stat(archivePath); err != nil {
				return failure(fmt.Sprintf("archive %s does not exist in folder %s", fact.Unescape(archive), fact.Unescape(folder)))
			}
			extractedPath := resolve(root, folder, file)
			if err := os.WriteFile(extractedPath, []byte{}, 0o644); err != nil {
				return failure(fmt.Sprintf("uncompress failed: %v", err))
			}

			message := fmt.Sprintf("extracted %s from %s into %s", fact.Unescape(file), fact.Unescape(archive), fact.Unescape(folder))
			delta := fmt.Sprintf("(at %s %s) -(is_compressed %s %s)", file, folder, file, archive)
			return success(message, delta)
		},
	}
}

// createFileSkill creates a new file with optional content.
//
// Grounded on infrastructure/mcp_skills/create_file_skill.py.
func createFileSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "create_file",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"filename", "folder"},
			Properties: map[string]skill.Property{
				"filename": {Type: "string"},
				"folder":   {Type: "string"},
				"content":  {Type: "string", Default: ""},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			filename, _ := stringArg(args, "filename")
			folder, _ := stringArg(args, "folder")
			content, _ := stringArg(args, "content")

			path := resolve(root, folder, filename)
			if _, err := os.Stat(path); err == nil {
				return failure(fmt.Sprintf("file %s already exists in folder %s", fact.Unescape(filename), fact.Unescape(folder)))
			}
			if err := os.MkdirAll(resolve(root, folder), 0o755); err != nil {
				return failure(fmt.Sprintf("cannot create folder %s: %v", fact.Unescape(folder), err))
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return failure(fmt.Sprintf("create file failed: %v", err))
			}

			nameWithoutExt := strings.TrimSuffix(filename, filepath.Ext(filename))
			message := fmt.Sprintf("created file %s in folder %s", fact.Unescape(filename), fact.Unescape(folder))
			delta := fmt.Sprintf("(at %s %s) (has_name %s %s)", filename, folder, filename, nameWithoutExt)
			return success(message, delta)
		},
	}
}

// createFolderSkill creates a new subfolder under an existing parent.
//
// Grounded on infrastructure/mcp_skills/create_folder_skill.py.
func createFolderSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "create_folder",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"folder", "parent"},
			Properties: map[string]skill.Property{
				"folder": {Type: "string"},
				"parent": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			folder, _ := stringArg(args, "folder")
			parent, _ := stringArg(args, "parent")

			path := resolve(root, parent, folder)
			if _, err := os.Stat(path); err == nil {
				return failure(fmt.Sprintf("folder %s already exists in parent %s", fact.Unescape(folder), fact.Unescape(parent)))
			}
			if _, err := os.Stat(resolve(root, parent)); err != nil {
				return failure(fmt.Sprintf("parent folder %s does not exist", fact.Unescape(parent)))
			}
			if err := os.MkdirAll(path, 0o755); err != nil {
				return failure(fmt.Sprintf("create folder failed: %v", err))
			}

			message := fmt.Sprintf("created folder %s in parent %s", fact.Unescape(folder), fact.Unescape(parent))
			delta := fmt.Sprintf("(is_empty %s) (is_created %s)", folder, folder)
			return success(message, delta)
		},
	}
}

// getAdminSkill grants the has_admin_rights fact unconditionally.
//
// Grounded on infrastructure/mcp_skills/get_admin_skill.py.
func getAdminSkill() *skill.Skill {
	return &skill.Skill{
		Name:   "get_admin",
		Source: skill.PoolCore,
		Schema: skill.Schema{},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return success("admin rights acquired", "(has_admin_rights)")
		},
	}
}

// renameSkill renames a file within its existing folder.
//
// Grounded on infrastructure/mcp_skills/rename_skill.py.
func renameSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "rename",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "folder", "new_name"},
			Properties: map[string]skill.Property{
				"file_name": {Type: "string"},
				"folder":    {Type: "string"},
				"new_name":  {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			folder, _ := stringArg(args, "folder")
			newName, _ := stringArg(args, "new_name")

			oldPath := resolve(root, folder, fileName)
			if _, err := os.Stat(oldPath); err != nil {
				return failure(fmt.Sprintf("file %s does not exist", fact.Unescape(fileName)))
			}

			oldReal := fact.Unescape(fileName)
			newReal := fact.Unescape(newName)
			if !strings.Contains(newReal, ".") && strings.Contains(oldReal, ".") {
				newReal += filepath.Ext(oldReal)
			}
			newEscaped := fact.Escape(newReal)

			newPath := resolve(root, folder, newEscaped)
			if _, err := os.Stat(newPath); err == nil {
				return failure(fmt.Sprintf("target file %s already exists", newReal))
			}
			if err := os.Rename(oldPath, newPath); err != nil {
				return failure(fmt.Sprintf("rename failed: %v", err))
			}

			oldNameWithoutExt := strings.TrimSuffix(fileName, filepath.Ext(fileName))
			newNameWithoutExt := strings.TrimSuffix(newEscaped, filepath.Ext(newEscaped))
			message := fmt.Sprintf("renamed %s to %s", oldReal, newReal)
			delta := fmt.Sprintf("-(has_name %s %s) (has_name %s %s)", fileName, oldNameWithoutExt, newEscaped, newNameWithoutExt)
			return success(message, delta)
		},
	}
}

// removeSkill deletes a file from a folder. Registered under both
// "remove" and "delete", the two distinct whitelist verbs
// internal/router's Hypothalamus Filter accepts for the same
// underlying operation (see DefaultConfig in internal/router/router.go).
//
// Grounded on infrastructure/mcp_skills/remove_file_skill.py.
func removeSkill(root, name string) *skill.Skill {
	return &skill.Skill{
		Name:   name,
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "folder"},
			Properties: map[string]skill.Property{
				"file_name": {Type: "string"},
				"folder":    {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			folder, _ := stringArg(args, "folder")

			path := resolve(root, folder, fileName)
			if _, err := os.Stat(path); err != nil {
				return failure(fmt.Sprintf("file %s does not exist", fact.Unescape(fileName)))
			}
			if err := os.Remove(path); err != nil {
				return failure(fmt.Sprintf("remove failed: %v", err))
			}

			message := fmt.Sprintf("removed %s from %s", fact.Unescape(fileName), fact.Unescape(folder))
			delta := fmt.Sprintf("-(at %s %s)", fileName, folder)
			return success(message, delta)
		},
	}
}

// readSkill returns a file's content without mutating state. Has no
// original_source counterpart; supplemented in create_file_skill.py's
// idiom since the spec's effector boundary requires every whitelisted
// verb to resolve to a real skill, and a read-only file op is a
// natural companion to create_file/write.
func readSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "read",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "folder"},
			Properties: map[string]skill.Property{
				"file_name": {Type: "string"},
				"folder":    {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			folder, _ := stringArg(args, "folder")

			path := resolve(root, folder, fileName)
			data, err := os.ReadFile(path)
			if err != nil {
				return failure(fmt.Sprintf("file %s does not exist", fact.Unescape(fileName)))
			}

			message := fmt.Sprintf("read %d bytes from %s", len(data), fact.Unescape(fileName))
			return success(message, "")
		},
	}
}

// writeSkill overwrites an existing file's content. Has no
// original_source counterpart; supplemented alongside readSkill.
func writeSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "write",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"file_name", "folder", "content"},
			Properties: map[string]skill.Property{
				"file_name": {Type: "string"},
				"folder":    {Type: "string"},
				"content":   {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			fileName, _ := stringArg(args, "file_name")
			folder, _ := stringArg(args, "folder")
			content, _ := stringArg(args, "content")

			path := resolve(root, folder, fileName)
			if _, err := os.Stat(path); err != nil {
				return failure(fmt.Sprintf("file %s does not exist", fact.Unescape(fileName)))
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return failure(fmt.Sprintf("write failed: %v", err))
			}

			message := fmt.Sprintf("wrote %d bytes to %s", len(content), fact.Unescape(fileName))
			return success(message, "")
		},
	}
}

// connectFoldersSkill marks two existing folders as connected, the
// precondition create_folder's domain action requires before a child
// folder can be created under a parent. Has no original_source
// counterpart; supplemented in create_folder_skill.py's idiom since
// the Python original treats "connected" as a pre-existing fact rather
// than an action that produces it (see create_folder_skill.py's
// comment: "前提条件中已经要求(connected ?parent ?d)").
func connectFoldersSkill(root string) *skill.Skill {
	return &skill.Skill{
		Name:   "connect_folders",
		Source: skill.PoolCore,
		Schema: skill.Schema{
			Required: []string{"folder_a", "folder_b"},
			Properties: map[string]skill.Property{
				"folder_a": {Type: "string"},
				"folder_b": {Type: "string"},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			folderA, _ := stringArg(args, "folder_a")
			folderB, _ := stringArg(args, "folder_b")

			if _, err := os.Stat(resolve(root, folderA)); err != nil {
				return failure(fmt.Sprintf("folder %s does not exist", fact.Unescape(folderA)))
			}
			if _, err := os.Stat(resolve(root, folderB)); err != nil {
				return failure(fmt.Sprintf("folder %s does not exist", fact.Unescape(folderB)))
			}

			message := fmt.Sprintf("connected %s and %s", fact.Unescape(folderA), fact.Unescape(folderB))
			delta := fmt.Sprintf("(connected %s %s)", folderA, folderB)
			return success(message, delta)
		},
	}
}
