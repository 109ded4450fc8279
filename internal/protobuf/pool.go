// Package protobuf parses .proto descriptor sets at runtime and provides a
// generic encode/decode codec between protobuf messages and
// bytes/JSON/YAML/Text, grounded on the dynamic-descriptor serialization
// shown in the retrieval pack's srclient protobuf serializer example.
package protobuf

import (
	"fmt"
	"path/filepath"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"

	"github.com/kaans/mqtli/internal/errs"
)

// Pool is a read-only, shared descriptor pool. It is built once at startup
// per .proto definition path and borrowed by every Payload that references
// it, per the descriptor-lifetime design note.
type Pool struct {
	path  string
	files []*desc.FileDescriptor
}

// LoadPool parses the .proto file at definitionPath (and anything it
// imports, resolved relative to its directory) into a descriptor pool.
func LoadPool(definitionPath string) (*Pool, error) {
	dir := filepath.Dir(definitionPath)
	base := filepath.Base(definitionPath)

	parser := protoparse.Parser{
		ImportPaths:           []string{dir},
		IncludeSourceCodeInfo: false,
	}

	fds, err := parser.ParseFiles(base)
	if err != nil {
		return nil, &errs.DescriptorError{Path: definitionPath, Cause: err}
	}

	return &Pool{path: definitionPath, files: fds}, nil
}

// LoadPoolFromSource parses an in-memory .proto source (used for the fixed,
// embedded Sparkplug-B schema) instead of reading from the filesystem.
func LoadPoolFromSource(name, contents string) (*Pool, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{name: contents}),
	}

	fds, err := parser.ParseFiles(name)
	if err != nil {
		return nil, &errs.DescriptorError{Path: name, Cause: err}
	}

	return &Pool{path: name, files: fds}, nil
}

// ResolveMessage finds a message descriptor by its fully qualified name
// (e.g. "myapp.v1.Response"). Failure is fatal for the owning topic at load
// time, per spec §4.2.
func (p *Pool) ResolveMessage(messageName string) (*desc.MessageDescriptor, error) {
	for _, fd := range p.files {
		if md := findMessage(fd, messageName); md != nil {
			return md, nil
		}
		for _, dep := range fd.GetDependencies() {
			if md := findMessage(dep, messageName); md != nil {
				return md, nil
			}
		}
	}
	return nil, &errs.DescriptorError{
		Path:  p.path,
		Cause: fmt.Errorf("message %q not found", messageName),
	}
}

func findMessage(fd *desc.FileDescriptor, name string) *desc.MessageDescriptor {
	for _, md := range fd.GetMessageTypes() {
		if found := searchMessage(md, name); found != nil {
			return found
		}
	}
	return nil
}

func searchMessage(md *desc.MessageDescriptor, fullName string) *desc.MessageDescriptor {
	if md.GetFullyQualifiedName() == fullName {
		return md
	}
	for _, nested := range md.GetNestedMessageTypes() {
		if found := searchMessage(nested, fullName); found != nil {
			return found
		}
	}
	return nil
}
