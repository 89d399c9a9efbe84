package test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"sort"
)

// Entry describes one tarball member. Directories end with '/', symlinks set Link
type Entry struct {
	Name string
	Body string
	Mode int64
	Link string
}

// TarGz builds a gzip compressed tarball holding the provided entries, in order
func TarGz(entries ...Entry) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{
			Name: e.Name,
			Mode: e.Mode,
		}
		switch {
		case e.Link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.Link
			if hdr.Mode == 0 {
				hdr.Mode = 0o777
			}
		case len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/':
			hdr.Typeflag = tar.TypeDir
			if hdr.Mode == 0 {
				hdr.Mode = 0o755
			}
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.Body))
			if hdr.Mode == 0 {
				hdr.Mode = 0o644
			}
		}
		err := tw.WriteHeader(hdr)
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag == tar.TypeReg {
			_, err = tw.Write([]byte(e.Body))
			if err != nil {
				return nil, err
			}
		}
	}
	err := tw.Close()
	if err != nil {
		return nil, err
	}
	err = gz.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Zip builds a zip archive holding the provided files
func Zip(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		_, err = w.Write(files[name])
		if err != nil {
			return nil, err
		}
	}
	err := zw.Close()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ArtifactZip builds a GitHub Actions style artifact: a zip wrapping a single tarball named
// tarballName, whose members all live below the wrapper directory
func ArtifactZip(tarballName, wrapper string, files map[string]string) ([]byte, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := []Entry{{Name: wrapper + "/"}}
	for _, name := range names {
		entries = append(entries, Entry{Name: wrapper + "/" + name, Body: files[name], Mode: 0o755})
	}
	tarball, err := TarGz(entries...)
	if err != nil {
		return nil, err
	}
	return Zip(map[string][]byte{tarballName: tarball})
}
