package main

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	peparser "github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"
)

// ErrNotAssembly is returned for images that carry no CLI assembly manifest.
var ErrNotAssembly = errors.New("not a managed assembly")

// AssemblyIdentity is the identity recorded in an assembly's manifest.
type AssemblyIdentity struct {
	Name      string
	Version   [4]uint16
	Culture   string
	PublicKey []byte
}

// PublicKeyToken returns the reversed last eight bytes of the SHA-1 of the
// public key, or nil for unsigned assemblies.
func (a AssemblyIdentity) PublicKeyToken() []byte {
	if len(a.PublicKey) == 0 {
		return nil
	}
	sum := sha1.Sum(a.PublicKey)
	token := make([]byte, 8)
	for i := range token {
		token[i] = sum[len(sum)-1-i]
	}
	return token
}

// FullName formats the identity the way the runtime displays it.
func (a AssemblyIdentity) FullName() string {
	culture := a.Culture
	if culture == "" {
		culture = "neutral"
	}
	token := "null"
	if t := a.PublicKeyToken(); t != nil {
		token = hex.EncodeToString(t)
	}
	return fmt.Sprintf("%s, Version=%d.%d.%d.%d, Culture=%s, PublicKeyToken=%s",
		a.Name, a.Version[0], a.Version[1], a.Version[2], a.Version[3], culture, token)
}

// ReadAssemblyIdentity reads the manifest identity of the PE image in data.
// Parser diagnostics go to logger at debug level.
func ReadAssemblyIdentity(data []byte, logger *log.Logger) (AssemblyIdentity, error) {
	f, err := peparser.NewBytes(data, &peparser.Options{
		Logger:                   parserLogger{logger},
		OmitExportDirectory:      true,
		OmitImportDirectory:      true,
		OmitExceptionDirectory:   true,
		OmitResourceDirectory:    true,
		OmitSecurityDirectory:    true,
		OmitRelocDirectory:       true,
		OmitDebugDirectory:       true,
		OmitTLSDirectory:         true,
		OmitLoadConfigDirectory:  true,
		OmitIATDirectory:         true,
		OmitDelayImportDirectory: true,
	})
	if err != nil {
		return AssemblyIdentity{}, fmt.Errorf("%w: %v", ErrNotAssembly, err)
	}
	if err := f.Parse(); err != nil {
		return AssemblyIdentity{}, fmt.Errorf("%w: %v", ErrNotAssembly, err)
	}
	if !f.HasCLR {
		return AssemblyIdentity{}, ErrNotAssembly
	}

	table, ok := f.CLR.MetadataTables[peparser.Assembly]
	if !ok || table == nil {
		return AssemblyIdentity{}, fmt.Errorf("%w: no assembly manifest", ErrNotAssembly)
	}
	rows, _ := table.Content.([]peparser.AssemblyTableRow)
	if len(rows) == 0 {
		return AssemblyIdentity{}, fmt.Errorf("%w: empty assembly table", ErrNotAssembly)
	}
	row := rows[0]

	heaps := manifestHeaps{
		file:    f,
		strings: f.CLR.MetadataStreams["#Strings"],
		blob:    f.CLR.MetadataStreams["#Blob"],
	}
	a := AssemblyIdentity{
		Version: [4]uint16{row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber},
	}
	if a.Name, err = heaps.stringAt(row.Name); err != nil {
		return AssemblyIdentity{}, err
	}
	if a.Name == "" {
		return AssemblyIdentity{}, fmt.Errorf("%w: unnamed assembly", ErrNotAssembly)
	}
	if a.Culture, err = heaps.stringAt(row.Culture); err != nil {
		return AssemblyIdentity{}, err
	}
	if a.PublicKey, err = heaps.blobAt(row.PublicKey); err != nil {
		return AssemblyIdentity{}, err
	}
	return a, nil
}

// manifestHeaps resolves #Strings and #Blob indexes of manifest rows.
type manifestHeaps struct {
	file    *peparser.File
	strings []byte
	blob    []byte
}

func (h manifestHeaps) stringAt(idx uint32) (string, error) {
	if idx == 0 {
		return "", nil
	}
	if int(idx) >= len(h.strings) {
		return "", fmt.Errorf("%w: string index %d out of range", ErrNotAssembly, idx)
	}
	return string(h.file.GetStringFromData(idx, h.strings)), nil
}

// blobAt decodes the compressed length prefix of the blob at idx.
func (h manifestHeaps) blobAt(idx uint32) ([]byte, error) {
	if idx == 0 {
		return nil, nil
	}
	if int(idx) >= len(h.blob) {
		return nil, fmt.Errorf("%w: blob index %d out of range", ErrNotAssembly, idx)
	}
	b := h.blob[idx:]
	var n, hdr int
	switch {
	case b[0]&0x80 == 0:
		n, hdr = int(b[0]), 1
	case b[0]&0xC0 == 0x80 && len(b) >= 2:
		n, hdr = int(b[0]&0x3F)<<8|int(b[1]), 2
	case b[0]&0xE0 == 0xC0 && len(b) >= 4:
		n, hdr = int(b[0]&0x1F)<<24|int(b[1])<<16|int(b[2])<<8|int(b[3]), 4
	default:
		return nil, fmt.Errorf("%w: bad blob header at %d", ErrNotAssembly, idx)
	}
	if hdr+n > len(b) {
		return nil, fmt.Errorf("%w: blob at %d overruns heap", ErrNotAssembly, idx)
	}
	if n == 0 {
		return nil, nil
	}
	return b[hdr : hdr+n], nil
}

// parserLogger forwards PE parser messages to a charm logger at debug level.
type parserLogger struct {
	logger *log.Logger
}

func (p parserLogger) Log(level pelog.Level, keyvals ...interface{}) error {
	p.logger.Debug("PE parser", append([]interface{}{"level", level.String()}, keyvals...)...)
	return nil
}
