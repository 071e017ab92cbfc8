package octomap

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// binaryTreeID identifies the tree type in the binary stream header; the
// reader rejects streams written for any other type.
const binaryTreeID = "OcTree"

// Binary stream format:
//
//	<tree type string> '\n'
//	<resolution: float64>
//	<number of nodes: uint32>
//	<root subtree>
//
// A subtree is two bytes of eight 2-bit child codes (slot 0 in the low bits
// of the first byte, slot 4 in the low bits of the second), followed by the
// subtrees of the inner children in slot order:
//
//	00 no child, 01 free leaf, 10 occupied leaf, 11 inner child
const (
	childCodeNone     = 0
	childCodeFree     = 1
	childCodeOccupied = 2
	childCodeInner    = 3
)

// WriteBinary converts the tree to its maximum likelihood estimate, prunes
// it, and writes it to w in the binary stream format. Use WriteBinaryConst to
// write without modifying the tree.
func (tree *OcTree) WriteBinary(w io.Writer) error {
	tree.ToMaxLikelihood()
	tree.Prune()
	return tree.WriteBinaryConst(w)
}

// WriteBinaryConst writes the tree to w without modifying it. Leaves are
// written as one bit of occupancy; the stream is smaller when the tree was
// reduced to maximum likelihood and pruned first.
func (tree *OcTree) WriteBinaryConst(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(binaryTreeID + "\n"); err != nil {
		return errors.Wrap(err, "writing octree header")
	}
	if err := binary.Write(bw, binary.LittleEndian, tree.resolution); err != nil {
		return errors.Wrap(err, "writing octree resolution")
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(tree.NumNodes())); err != nil {
		return errors.Wrap(err, "writing octree node count")
	}
	if tree.root != nil {
		if err := tree.writeBinaryNode(bw, tree.root); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func (tree *OcTree) writeBinaryNode(w *bufio.Writer, node *OcTreeNode) error {
	var packed [2]byte
	for i := 0; i < 8; i++ {
		code := childCodeNone
		if child := node.Child(i); child != nil {
			switch {
			case child.HasChildren():
				code = childCodeInner
			case tree.IsNodeOccupied(child):
				code = childCodeOccupied
			default:
				code = childCodeFree
			}
		}
		packed[i/4] |= byte(code) << uint(i%4*2)
	}
	if _, err := w.Write(packed[:]); err != nil {
		return errors.Wrap(err, "writing octree node")
	}
	for i := 0; i < 8; i++ {
		child := node.Child(i)
		if child != nil && child.HasChildren() {
			if err := tree.writeBinaryNode(w, child); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadBinary replaces the tree's contents with the tree read from r. The
// resolution is adopted from the stream. On a header mismatch, truncation, or
// node count mismatch the tree is left cleared and the error returned.
func (tree *OcTree) ReadBinary(r io.Reader) error {
	tree.Clear()
	br := bufio.NewReader(r)

	header, err := br.ReadString('\n')
	if err != nil {
		return errors.Wrap(err, "reading octree header")
	}
	if id := strings.TrimSuffix(header, "\n"); id != binaryTreeID {
		return errors.Errorf("unknown octree type %q in binary stream", id)
	}

	var resolution float64
	if err := binary.Read(br, binary.LittleEndian, &resolution); err != nil {
		return errors.Wrap(err, "reading octree resolution")
	}
	if resolution <= 0 {
		return errors.Errorf("invalid resolution (%f) in binary stream", resolution)
	}

	var numNodes uint32
	if err := binary.Read(br, binary.LittleEndian, &numNodes); err != nil {
		return errors.Wrap(err, "reading octree node count")
	}

	tree.resolution = resolution
	if numNodes == 0 {
		return nil
	}

	root := newOcTreeNode()
	read, err := tree.readBinaryNode(br, root)
	if err != nil {
		return err
	}
	if read != int(numNodes) {
		return errors.Errorf("binary stream declared %d nodes, contains %d", numNodes, read)
	}
	tree.root = root
	return nil
}

// readBinaryNode reads the node's child codes, materializes leaf children at
// the matching clamping bound, recurses into inner children, and returns the
// number of nodes materialized including the node itself.
func (tree *OcTree) readBinaryNode(r *bufio.Reader, node *OcTreeNode) (int, error) {
	var packed [2]byte
	if _, err := io.ReadFull(r, packed[:]); err != nil {
		return 0, errors.Wrap(err, "reading octree node")
	}

	count := 1
	for i := 0; i < 8; i++ {
		code := int(packed[i/4]>>uint(i%4*2)) & 3
		switch code {
		case childCodeNone:
		case childCodeFree:
			node.CreateChild(i).SetLogOdds(tree.model.ClampingThresMin)
			count++
		case childCodeOccupied:
			node.CreateChild(i).SetLogOdds(tree.model.ClampingThresMax)
			count++
		case childCodeInner:
			node.CreateChild(i)
		}
	}
	for i := 0; i < 8; i++ {
		code := int(packed[i/4]>>uint(i%4*2)) & 3
		if code != childCodeInner {
			continue
		}
		read, err := tree.readBinaryNode(r, node.Child(i))
		if err != nil {
			return 0, err
		}
		count += read
	}
	if node.HasChildren() {
		node.UpdateOccupancyChildren()
	}
	return count, nil
}

// WriteBinaryFile writes the maximum likelihood estimate of the tree to a
// file, pruning it first.
func (tree *OcTree) WriteBinaryFile(path string) (err error) {
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	return tree.WriteBinary(f)
}

// ReadBinaryFile replaces the tree's contents with the tree read from a file.
func (tree *OcTree) ReadBinaryFile(path string) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return tree.ReadBinary(f)
}
