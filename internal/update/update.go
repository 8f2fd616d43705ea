// Package update implements the self-update command: it checks
// the latest GitHub release (with a short-lived cache), compares
// versions, and installs a checksum-verified replacement binary.
package update

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	githubAPIURL  = "https://api.github.com/repos/wesm/historysync/releases/latest"
	cacheFileName = "update_check.json"
	cacheDuration = 1 * time.Hour
)

// Release represents a GitHub release.
type Release struct {
	TagName string  `json:"tag_name"`
	Body    string  `json:"body"`
	Assets  []Asset `json:"assets"`
}

// Asset represents a release asset.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
	AssetName      string
	Size           int64
	Checksum       string
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
}

// Check reports whether a newer release exists. It returns nil
// when already up to date. A cached result suppresses repeated
// GitHub API calls within the cache window unless force is set.
func Check(
	currentVersion string, force bool, cacheDir string,
) (*Info, error) {
	current := strings.TrimPrefix(currentVersion, "v")

	if !force {
		if upToDate := cachedUpToDate(current, cacheDir); upToDate {
			return nil, nil
		}
	}

	release, err := fetchLatestRelease()
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	saveCache(release.TagName, cacheDir)

	latest := strings.TrimPrefix(release.TagName, "v")
	if !isNewer(latest, current) {
		return nil, nil
	}

	assetName := AssetName(latest)
	asset, checksumsAsset := findAssets(release.Assets, assetName)
	if asset == nil {
		return nil, fmt.Errorf(
			"no release asset for %s/%s",
			runtime.GOOS, runtime.GOARCH,
		)
	}

	var checksum string
	if checksumsAsset != nil {
		checksum, _ = fetchChecksumFromFile(
			checksumsAsset.BrowserDownloadURL, assetName,
		)
	}
	if checksum == "" {
		checksum = ExtractChecksum(release.Body, assetName)
	}

	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		DownloadURL:    asset.BrowserDownloadURL,
		AssetName:      asset.Name,
		Size:           asset.Size,
		Checksum:       checksum,
	}, nil
}

// AssetName returns the release archive name for this platform.
func AssetName(version string) string {
	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf(
		"historysync_%s_%s_%s%s",
		version, runtime.GOOS, runtime.GOARCH, ext,
	)
}

// findAssets locates the platform binary and checksums file.
func findAssets(
	assets []Asset, assetName string,
) (asset *Asset, checksumsAsset *Asset) {
	for i := range assets {
		a := &assets[i]
		if a.Name == assetName {
			asset = a
		}
		if a.Name == "SHA256SUMS" || a.Name == "checksums.txt" {
			checksumsAsset = a
		}
	}
	return asset, checksumsAsset
}

// Install downloads the release archive, verifies its checksum,
// and replaces the current executable.
func Install(
	info *Info,
	progressFn func(downloaded, total int64),
) error {
	if info.Checksum == "" {
		return fmt.Errorf(
			"no checksum for %s - refusing unverified binary",
			info.AssetName,
		)
	}

	tempDir, err := os.MkdirTemp("", "historysync-update-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, info.AssetName)
	checksum, err := downloadFile(
		info.DownloadURL, archivePath, info.Size, progressFn,
	)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !strings.EqualFold(checksum, info.Checksum) {
		return fmt.Errorf(
			"checksum mismatch: expected %s, got %s",
			info.Checksum, checksum,
		)
	}

	currentExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find current executable: %w", err)
	}
	currentExe, err = filepath.EvalSymlinks(currentExe)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	return installArchive(archivePath, currentExe)
}

// installArchive extracts the binary from the archive and swaps
// it into place at dstPath with a backup for rollback.
func installArchive(archivePath, dstPath string) error {
	extractDir, err := os.MkdirTemp("", "historysync-extract-*")
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if strings.HasSuffix(archivePath, ".zip") {
		err = extractZip(archivePath, extractDir)
	} else {
		err = extractTarGz(archivePath, extractDir)
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	binaryName := "historysync"
	if runtime.GOOS == "windows" {
		binaryName = "historysync.exe"
	}
	srcPath := filepath.Join(extractDir, binaryName)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return fmt.Errorf(
			"binary %s not found in archive", binaryName,
		)
	}

	return replaceBinary(srcPath, dstPath)
}

// replaceBinary swaps in the new binary using rename-then-copy,
// which also works on Windows where the running executable
// cannot be overwritten in place.
func replaceBinary(srcPath, dstPath string) error {
	backupPath := dstPath + ".old"
	os.Remove(backupPath)

	if _, err := os.Stat(dstPath); err == nil {
		if err := os.Rename(dstPath, backupPath); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	if err := copyFile(srcPath, dstPath); err != nil {
		if restoreErr := os.Rename(
			backupPath, dstPath,
		); restoreErr != nil {
			return fmt.Errorf(
				"install: %w (rollback also failed: %v)",
				err, restoreErr,
			)
		}
		return fmt.Errorf("install: %w", err)
	}
	if err := os.Chmod(dstPath, 0o755); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	os.Remove(backupPath)
	return nil
}

func fetchLatestRelease() (*Release, error) {
	req, err := http.NewRequest("GET", githubAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "historysync-update")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"GitHub API returned %s", resp.Status,
		)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}

func downloadFile(
	url, dest string,
	totalSize int64,
	progressFn func(downloaded, total int64),
) (string, error) {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hasher := sha256.New()
	writer := io.MultiWriter(out, hasher)

	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := writer.Write(buf[:n]); writeErr != nil {
				return "", writeErr
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(downloaded, totalSize)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		target, err := sanitizePath(destDir, header.Name)
		if err != nil {
			return fmt.Errorf(
				"invalid tar entry %q: %w", header.Name, err,
			)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(
				target, tr, os.FileMode(header.Mode),
			); err != nil {
				return err
			}
		}
		// Symlinks and hard links in the archive are ignored.
	}
	return nil
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := sanitizePath(destDir, f.Name)
		if err != nil {
			return fmt.Errorf(
				"invalid zip entry %q: %w", f.Name, err,
			)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, rc, 0o644)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(
	target string, r io.Reader, mode os.FileMode,
) error {
	if err := os.MkdirAll(
		filepath.Dir(target), 0o755,
	); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

// sanitizePath validates an archive entry name to prevent
// directory traversal.
func sanitizePath(destDir, name string) (string, error) {
	cleanName := filepath.Clean(name)
	if filepath.IsAbs(cleanName) ||
		strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("absolute path not allowed")
	}
	if cleanName == ".." || strings.HasPrefix(
		cleanName, ".."+string(filepath.Separator),
	) {
		return "", fmt.Errorf("path traversal not allowed")
	}
	return filepath.Join(destDir, cleanName), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func fetchChecksumFromFile(
	url, assetName string,
) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf(
			"failed to fetch checksums: %s", resp.Status,
		)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return ExtractChecksum(string(body), assetName), nil
}

var hexChecksumRe = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// ExtractChecksum finds the sha256 for assetName in a
// SHA256SUMS-style listing (also works on release bodies that
// embed one).
func ExtractChecksum(listing, assetName string) string {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		fname := strings.TrimPrefix(fields[1], "*")
		if fname == assetName &&
			hexChecksumRe.MatchString(fields[0]) {
			return strings.ToLower(fields[0])
		}
	}
	return ""
}

func cachedUpToDate(current, cacheDir string) bool {
	data, err := os.ReadFile(
		filepath.Join(cacheDir, cacheFileName),
	)
	if err != nil {
		return false
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return false
	}
	if time.Since(cached.CheckedAt) >= cacheDuration {
		return false
	}
	latest := strings.TrimPrefix(cached.Version, "v")
	return !isNewer(latest, current)
}

func saveCache(version, cacheDir string) {
	data, err := json.Marshal(cachedCheck{
		CheckedAt: time.Now(),
		Version:   version,
	})
	if err != nil {
		return
	}
	path := filepath.Join(cacheDir, cacheFileName)
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, data, 0o600)
}

// isNewer reports whether v1 is a strictly newer semantic
// version than v2. Non-semver values (dev builds) never count
// as newer.
func isNewer(v1, v2 string) bool {
	sv1 := "v" + strings.TrimPrefix(v1, "v")
	sv2 := "v" + strings.TrimPrefix(v2, "v")
	if !semver.IsValid(sv1) || !semver.IsValid(sv2) {
		return false
	}
	return semver.Compare(sv1, sv2) > 0
}

// FormatSize formats bytes as a human-readable string.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf(
		"%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp],
	)
}
