// Package loaders reads measured surface topography meshes from disk.
// Topography scans are exchanged as PLY files holding vertex positions in
// µm and triangular faces; all other vertex properties are skipped.
package loaders

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scintilla-sim/pillartrack/pkg/core"
	"github.com/scintilla-sim/pillartrack/pkg/log"
)

var logger = log.New("loaders")

// PLYHeader holds the parsed header of a topography PLY file
type PLYHeader struct {
	Format      string // "ascii" or "binary_little_endian"
	Version     string
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty
}

// PLYProperty is one property definition from the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // for list properties, the type of the count
	DataType string // for list properties, the type of the elements
}

// PLYData is the raw topography mesh loaded from a PLY file
type PLYData struct {
	Vertices []core.Vec3 // vertex positions in µm
	Faces    []int       // triangle indices, 3 per face
}

// LoadPLY reads a topography mesh from a PLY file. ASCII and binary
// little-endian formats are supported; faces must be triangles.
func LoadPLY(filename string) (*PLYData, error) {
	startTime := time.Now()

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %v", err)
	}
	defer file.Close()

	header, headerSize, err := parsePLYHeader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %v", err)
	}
	if header.VertexCount == 0 || header.FaceCount == 0 {
		return nil, fmt.Errorf("PLY file %s has no mesh data (%d vertices, %d faces)",
			filename, header.VertexCount, header.FaceCount)
	}

	if _, err := file.Seek(int64(headerSize), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek past header: %v", err)
	}

	var data *PLYData
	switch header.Format {
	case "binary_little_endian":
		data, err = readBinaryLittleEndian(file, header)
	case "ascii":
		data, err = readASCII(file, header)
	default:
		return nil, fmt.Errorf("unsupported PLY format: %s", header.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY data: %v", err)
	}

	logger.Infof("loaded topography %s: %d vertices, %d triangles in %v",
		filename, len(data.Vertices), len(data.Faces)/3, time.Since(startTime))

	return data, nil
}

// parsePLYHeader parses the header and returns the byte offset where the
// element data starts
func parsePLYHeader(file *os.File) (*PLYHeader, int, error) {
	header := &PLYHeader{}

	reader := bufio.NewReader(file)
	var bytesRead int
	var currentElement string

	for {
		// Count the bytes actually consumed so the data offset stays
		// correct for CRLF-authored headers.
		raw, err := reader.ReadString('\n')
		bytesRead += len(raw)
		if err == io.EOF && strings.TrimSpace(raw) != "end_header" {
			return nil, 0, fmt.Errorf("header has no end_header line")
		}
		if err != nil && err != io.EOF {
			return nil, 0, fmt.Errorf("error reading header: %v", err)
		}

		line := strings.TrimSpace(raw)
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "ply", "comment":
			// magic number and comments carry no data
		case "format":
			if len(parts) >= 3 {
				header.Format = parts[1]
				header.Version = parts[2]
			}
		case "element":
			if len(parts) >= 3 {
				count, err := strconv.Atoi(parts[2])
				if err != nil {
					return nil, 0, fmt.Errorf("invalid element count: %s", parts[2])
				}
				currentElement = parts[1]
				switch currentElement {
				case "vertex":
					header.VertexCount = count
				case "face":
					header.FaceCount = count
				}
			}
		case "property":
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, 0, fmt.Errorf("failed to parse property: %v", err)
			}
			switch currentElement {
			case "vertex":
				header.VertexProps = append(header.VertexProps, prop)
			case "face":
				header.FaceProps = append(header.FaceProps, prop)
			}
		}
	}

	return header, bytesRead, nil
}

func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}
	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
	}
	return prop, nil
}

// readASCII reads whitespace-separated vertex and face rows
func readASCII(file *os.File, header *PLYHeader) (*PLYData, error) {
	vertices := make([]core.Vec3, 0, header.VertexCount)
	faces := make([]int, 0, header.FaceCount*3)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	nextRow := func() ([]string, error) {
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) > 0 {
				return fields, nil
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}

	for i := 0; i < header.VertexCount; i++ {
		fields, err := nextRow()
		if err != nil {
			return nil, fmt.Errorf("vertex %d: %v", i, err)
		}
		if len(fields) < len(header.VertexProps) {
			return nil, fmt.Errorf("vertex %d: %d fields, header declares %d properties",
				i, len(fields), len(header.VertexProps))
		}

		var x, y, z float64
		for j, prop := range header.VertexProps {
			value, err := strconv.ParseFloat(fields[j], 64)
			if err != nil {
				return nil, fmt.Errorf("vertex %d property %s: %v", i, prop.Name, err)
			}
			switch prop.Name {
			case "x":
				x = value
			case "y":
				y = value
			case "z":
				z = value
			}
		}
		vertices = append(vertices, core.NewVec3(x, y, z))
	}

	for i := 0; i < header.FaceCount; i++ {
		fields, err := nextRow()
		if err != nil {
			return nil, fmt.Errorf("face %d: %v", i, err)
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("face %d vertex count: %v", i, err)
		}
		if count != 3 {
			return nil, fmt.Errorf("only triangular faces supported, got %d vertices at face %d", count, i)
		}
		if len(fields) < 4 {
			return nil, fmt.Errorf("face %d: missing indices", i)
		}
		for j := 1; j <= 3; j++ {
			index, err := strconv.Atoi(fields[j])
			if err != nil {
				return nil, fmt.Errorf("face %d index %d: %v", i, j-1, err)
			}
			if index < 0 || index >= header.VertexCount {
				return nil, fmt.Errorf("face %d references vertex %d of %d", i, index, header.VertexCount)
			}
			faces = append(faces, index)
		}
	}

	return &PLYData{Vertices: vertices, Faces: faces}, nil
}

// readBinaryLittleEndian reads packed vertex records followed by face lists
func readBinaryLittleEndian(file *os.File, header *PLYHeader) (*PLYData, error) {
	vertices := make([]core.Vec3, 0, header.VertexCount)
	faces := make([]int, 0, header.FaceCount*3)

	// Vertices have a fixed record size, so read them in one bulk call.
	vertexSize := 0
	for _, prop := range header.VertexProps {
		if prop.IsList {
			return nil, fmt.Errorf("list property %s not supported on vertices", prop.Name)
		}
		vertexSize += typeSize(prop.Type)
	}
	vertexData := make([]byte, vertexSize*header.VertexCount)
	if _, err := io.ReadFull(file, vertexData); err != nil {
		return nil, fmt.Errorf("failed to read vertex data: %v", err)
	}

	for i := 0; i < header.VertexCount; i++ {
		record := vertexData[i*vertexSize : (i+1)*vertexSize]
		var x, y, z float64
		offset := 0
		for _, prop := range header.VertexProps {
			size := typeSize(prop.Type)
			switch prop.Name {
			case "x", "y", "z":
				var value float64
				switch prop.Type {
				case "float", "float32":
					value = float64(byteOrderFloat32(record[offset : offset+size]))
				case "double", "float64":
					value = byteOrderFloat64(record[offset : offset+size])
				default:
					return nil, fmt.Errorf("unsupported coordinate type %s for %s", prop.Type, prop.Name)
				}
				switch prop.Name {
				case "x":
					x = value
				case "y":
					y = value
				case "z":
					z = value
				}
			}
			offset += size
		}
		vertices = append(vertices, core.NewVec3(x, y, z))
	}

	// Faces are variable length lists, read through a buffered stream.
	reader := bufio.NewReaderSize(file, 1024*1024)

	for i := 0; i < header.FaceCount; i++ {
		for _, prop := range header.FaceProps {
			if prop.IsList && (prop.Name == "vertex_indices" || prop.Name == "vertex_index") {
				count, err := readListCount(reader, prop.ListType)
				if err != nil {
					return nil, fmt.Errorf("face %d vertex count: %v", i, err)
				}
				if count != 3 {
					return nil, fmt.Errorf("only triangular faces supported, got %d vertices at face %d", count, i)
				}
				for j := 0; j < 3; j++ {
					index, err := readListIndex(reader, prop.DataType)
					if err != nil {
						return nil, fmt.Errorf("face %d index %d: %v", i, j, err)
					}
					if index < 0 || index >= header.VertexCount {
						return nil, fmt.Errorf("face %d references vertex %d of %d", i, index, header.VertexCount)
					}
					faces = append(faces, index)
				}
			} else if err := skipProperty(reader, prop); err != nil {
				return nil, fmt.Errorf("failed to skip face property %s at face %d: %v", prop.Name, i, err)
			}
		}
	}

	return &PLYData{Vertices: vertices, Faces: faces}, nil
}

func readListCount(reader *bufio.Reader, listType string) (int, error) {
	switch listType {
	case "uchar", "uint8":
		var count uint8
		err := binary.Read(reader, binary.LittleEndian, &count)
		return int(count), err
	case "int", "int32":
		var count int32
		err := binary.Read(reader, binary.LittleEndian, &count)
		return int(count), err
	default:
		return 0, fmt.Errorf("unsupported list count type: %s", listType)
	}
}

func readListIndex(reader *bufio.Reader, dataType string) (int, error) {
	switch dataType {
	case "int", "int32":
		var index int32
		err := binary.Read(reader, binary.LittleEndian, &index)
		return int(index), err
	case "uint", "uint32":
		var index uint32
		err := binary.Read(reader, binary.LittleEndian, &index)
		return int(index), err
	default:
		return 0, fmt.Errorf("unsupported face index type: %s", dataType)
	}
}

// skipProperty advances past a property we do not use
func skipProperty(reader *bufio.Reader, prop PLYProperty) error {
	if prop.IsList {
		count, err := readListCount(reader, prop.ListType)
		if err != nil {
			return err
		}
		if _, err := reader.Discard(count * typeSize(prop.DataType)); err != nil {
			return err
		}
		return nil
	}
	_, err := reader.Discard(typeSize(prop.Type))
	return err
}

func typeSize(dataType string) int {
	switch dataType {
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default: // float, int, uint
		return 4
	}
}

func byteOrderFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func byteOrderFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
