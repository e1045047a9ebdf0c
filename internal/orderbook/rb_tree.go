package orderbook

type color uint8

const (
	red color = iota
	black
)

type node struct {
	tick   int64
	depth  int64
	color  color
	left   *node
	right  *node
	parent *node
}

// rbTree is a red-black tree keyed by price tick. A shared black sentinel
// stands in for nil children and the root's parent.
type rbTree struct {
	root *node
	nil  *node
	size int
}

func newRBTree() *rbTree {
	sentinel := &node{color: black}
	return &rbTree{root: sentinel, nil: sentinel}
}

func (t *rbTree) Len() int { return t.size }

func (t *rbTree) find(tick int64) *node {
	n := t.root
	for n != t.nil {
		switch {
		case tick < n.tick:
			n = n.left
		case tick > n.tick:
			n = n.right
		default:
			return n
		}
	}
	return nil
}

// upsert returns the node for tick, inserting an empty one if absent.
func (t *rbTree) upsert(tick int64) *node {
	y := t.nil
	x := t.root
	for x != t.nil {
		y = x
		switch {
		case tick < x.tick:
			x = x.left
		case tick > x.tick:
			x = x.right
		default:
			return x
		}
	}

	z := &node{tick: tick, color: red, left: t.nil, right: t.nil, parent: y}
	switch {
	case y == t.nil:
		t.root = z
	case z.tick < y.tick:
		y.left = z
	default:
		y.right = z
	}
	t.insertFixup(z)
	t.size++
	return z
}

func (t *rbTree) remove(z *node) {
	t.deleteNode(z)
	t.size--
}

func (t *rbTree) min() *node {
	n := t.minNode(t.root)
	if n == t.nil {
		return nil
	}
	return n
}

func (t *rbTree) max() *node {
	n := t.maxNode(t.root)
	if n == t.nil {
		return nil
	}
	return n
}

// ceiling returns the node with the smallest tick >= tick.
func (t *rbTree) ceiling(tick int64) *node {
	n := t.root
	best := t.nil
	for n != t.nil {
		if n.tick >= tick {
			best = n
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

// ascend visits nodes with lo <= tick <= hi in ascending order until fn
// returns false.
func (t *rbTree) ascend(lo, hi int64, fn func(n *node) bool) {
	for n := t.ceiling(lo); n != t.nil && n.tick <= hi; n = t.next(n) {
		if !fn(n) {
			return
		}
	}
}

func (t *rbTree) minNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.left != t.nil {
		n = n.left
	}
	return n
}

func (t *rbTree) maxNode(n *node) *node {
	if n == t.nil {
		return t.nil
	}
	for n.right != t.nil {
		n = n.right
	}
	return n
}

func (t *rbTree) next(n *node) *node {
	if n.right != t.nil {
		return t.minNode(n.right)
	}
	p := n.parent
	for p != t.nil && n == p.right {
		n = p
		p = p.parent
	}
	return p
}

func (t *rbTree) leftRotate(x *node) {
	y := x.right
	x.right = y.left
	if y.left != t.nil {
		y.left.parent = x
	}
	y.parent = x.parent
	switch {
	case x.parent == t.nil:
		t.root = y
	case x == x.parent.left:
		x.parent.left = y
	default:
		x.parent.right = y
	}
	y.left = x
	x.parent = y
}

func (t *rbTree) rightRotate(y *node) {
	x := y.left
	y.left = x.right
	if x.right != t.nil {
		x.right.parent = y
	}
	x.parent = y.parent
	switch {
	case y.parent == t.nil:
		t.root = x
	case y == y.parent.right:
		y.parent.right = x
	default:
		y.parent.left = x
	}
	x.right = y
	y.parent = x
}

func (t *rbTree) insertFixup(z *node) {
	for z.parent.color == red {
		if z.parent == z.parent.parent.left {
			y := z.parent.parent.right
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
				continue
			}
			if z == z.parent.right {
				z = z.parent
				t.leftRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.rightRotate(z.parent.parent)
		} else {
			y := z.parent.parent.left
			if y.color == red {
				z.parent.color = black
				y.color = black
				z.parent.parent.color = red
				z = z.parent.parent
				continue
			}
			if z == z.parent.left {
				z = z.parent
				t.rightRotate(z)
			}
			z.parent.color = black
			z.parent.parent.color = red
			t.leftRotate(z.parent.parent)
		}
	}
	t.root.color = black
}

func (t *rbTree) transplant(u, v *node) {
	switch {
	case u.parent == t.nil:
		t.root = v
	case u == u.parent.left:
		u.parent.left = v
	default:
		u.parent.right = v
	}
	v.parent = u.parent
}

func (t *rbTree) deleteNode(z *node) {
	y := z
	yOrigColor := y.color
	var x *node

	switch {
	case z.left == t.nil:
		x = z.right
		t.transplant(z, z.right)
	case z.right == t.nil:
		x = z.left
		t.transplant(z, z.left)
	default:
		y = t.minNode(z.right)
		yOrigColor = y.color
		x = y.right
		if y.parent == z {
			x.parent = y
		} else {
			t.transplant(y, y.right)
			y.right = z.right
			y.right.parent = y
		}
		t.transplant(z, y)
		y.left = z.left
		y.left.parent = y
		y.color = z.color
	}

	if yOrigColor == black {
		t.deleteFixup(x)
	}
	// the sentinel's parent may have been set by transplant
	t.nil.parent = t.nil
}

func (t *rbTree) deleteFixup(x *node) {
	for x != t.root && x.color == black {
		if x == x.parent.left {
			w := x.parent.right
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.leftRotate(x.parent)
				w = x.parent.right
			}
			if w.left.color == black && w.right.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.right.color == black {
				w.left.color = black
				w.color = red
				t.rightRotate(w)
				w = x.parent.right
			}
			w.color = x.parent.color
			x.parent.color = black
			w.right.color = black
			t.leftRotate(x.parent)
			x = t.root
		} else {
			w := x.parent.left
			if w.color == red {
				w.color = black
				x.parent.color = red
				t.rightRotate(x.parent)
				w = x.parent.left
			}
			if w.right.color == black && w.left.color == black {
				w.color = red
				x = x.parent
				continue
			}
			if w.left.color == black {
				w.right.color = black
				w.color = red
				t.leftRotate(w)
				w = x.parent.left
			}
			w.color = x.parent.color
			x.parent.color = black
			w.left.color = black
			t.rightRotate(x.parent)
			x = t.root
		}
	}
	x.color = black
}
