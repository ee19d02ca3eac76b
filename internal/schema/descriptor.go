package schema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"
)

func newDynamic(desc protoreflect.MessageDescriptor) proto.Message {
	return dynamicpb.NewMessage(desc)
}

// closure walks a file's dependency graph breadth-first, de-duplicating by
// file path, and returns the serialized, flattened FileDescriptorSet.
// De-duping by path also guards against cyclic or re-enqueued dependencies.
func closure(root protoreflect.FileDescriptor) ([]byte, error) {
	visited := make(map[string]struct{})
	var files []*descriptorpb.FileDescriptorProto

	queue := []protoreflect.FileDescriptor{root}
	for len(queue) > 0 {
		fd := queue[0]
		queue = queue[1:]

		if _, seen := visited[fd.Path()]; seen {
			continue
		}
		visited[fd.Path()] = struct{}{}
		files = append(files, protodesc.ToFileDescriptorProto(fd))

		for i := 0; i < fd.Imports().Len(); i++ {
			dep := fd.Imports().Get(i).FileDescriptor
			if dep == nil {
				continue
			}
			if _, seen := visited[dep.Path()]; !seen {
				queue = append(queue, dep)
			}
		}
	}

	set := &descriptorpb.FileDescriptorSet{File: files}
	return proto.Marshal(set)
}

// filesFromSet rebuilds a protoregistry.Files from a serialized,
// transitively-closed FileDescriptorSet — used when a descriptor arrives
// over the wire (a log file, or a bus publisher's carried descriptor)
// rather than from a Go-compiled proto type.
func filesFromSet(descriptorSet []byte) (*protoregistry.Files, error) {
	var set descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(descriptorSet, &set); err != nil {
		return nil, fmt.Errorf("unmarshal descriptor set: %w", err)
	}
	files, err := protodesc.NewFiles(&set)
	if err != nil {
		return nil, fmt.Errorf("build file registry: %w", err)
	}
	return files, nil
}

// findMessage locates a message descriptor by its fully-qualified TypeName
// within a set of files.
func findMessage(files *protoregistry.Files, typeName string) (protoreflect.MessageDescriptor, error) {
	desc, err := files.FindDescriptorByName(protoreflect.FullName(typeName))
	if err != nil {
		return nil, err
	}
	msgDesc, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, fmt.Errorf("%s is not a message type", typeName)
	}
	return msgDesc, nil
}
