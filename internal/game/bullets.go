package game

import "math"

// --- Bullet constants ---

const (
	BulletSpeed    = 7 // px per frame
	InitialBullets = 50

	// Free bullets wait off-screen at the park position.
	BulletParkX = -50
	BulletParkY = -50
)

// Bullet is a pooled projectile. Owner is the ShipID that fired it and is only
// ever compared, never dereferenced; it is 0 while the bullet is parked.
type Bullet struct {
	X, Y     float64
	Rotation float64
	Owner    ShipID
	active   bool
}

// Active reports whether the bullet is in flight.
func (b *Bullet) Active() bool { return b.active }

func (b *Bullet) park() {
	b.X = BulletParkX
	b.Y = BulletParkY
	b.Rotation = 0
	b.Owner = 0
	b.active = false
}

// BulletPool recycles bullets. It grows on demand and never shrinks.
type BulletPool struct {
	width, height float64
	all           []*Bullet
	active        []*Bullet
	free          []*Bullet

	// OnSpawn is called for every bullet put in flight.
	OnSpawn func(owner ShipID)
	// OnHit is called after a bullet hit target.
	OnHit func(owner ShipID, target *Ship)
}

// NewBulletPool creates a pool for a width×height field, prefilled with
// initial parked bullets.
func NewBulletPool(width, height float64, initial int) *BulletPool {
	p := &BulletPool{width: width, height: height}
	for i := 0; i < initial; i++ {
		p.free = append(p.free, p.allocate())
	}
	return p
}

func (p *BulletPool) allocate() *Bullet {
	b := &Bullet{}
	b.park()
	p.all = append(p.all, b)
	return b
}

// Resize changes the bounds used for out-of-field recycling.
func (p *BulletPool) Resize(width, height float64) {
	p.width = width
	p.height = height
}

// Spawn puts a bullet in flight at (x, y) heading along angle.
func (p *BulletPool) Spawn(x, y, angle float64, owner ShipID) *Bullet {
	var b *Bullet
	if n := len(p.free); n > 0 {
		b = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		b = p.allocate()
	}
	b.X = x
	b.Y = y
	b.Rotation = angle
	b.Owner = owner
	b.active = true
	p.active = append(p.active, b)
	if p.OnSpawn != nil {
		p.OnSpawn(owner)
	}
	return b
}

// Advance moves every active bullet one step, recycles bullets that leave the
// field and hit-tests the rest against ships. A bullet never hits the ship
// that fired it and is recycled on its first hit.
func (p *BulletPool) Advance(ships []*Ship) {
	kept := p.active[:0]
	for _, b := range p.active {
		b.X += math.Sin(b.Rotation) * BulletSpeed
		b.Y -= math.Cos(b.Rotation) * BulletSpeed

		if b.X < 0 || b.X > p.width || b.Y < 0 || b.Y > p.height {
			p.recycle(b)
			continue
		}

		var hit *Ship
		for _, s := range ships {
			if s.ID() == b.Owner {
				continue
			}
			if s.CheckHit(b.X, b.Y) {
				hit = s
				break
			}
		}
		if hit != nil {
			owner := b.Owner
			p.recycle(b)
			if p.OnHit != nil {
				p.OnHit(owner, hit)
			}
			continue
		}
		kept = append(kept, b)
	}
	for i := len(kept); i < len(p.active); i++ {
		p.active[i] = nil
	}
	p.active = kept
}

func (p *BulletPool) recycle(b *Bullet) {
	b.park()
	p.free = append(p.free, b)
}

// ActiveCount returns the number of bullets in flight.
func (p *BulletPool) ActiveCount() int { return len(p.active) }

// FreeCount returns the number of parked bullets.
func (p *BulletPool) FreeCount() int { return len(p.free) }

// Allocated returns the total number of bullets ever created.
func (p *BulletPool) Allocated() int { return len(p.all) }

// Active returns the bullets in flight. The slice is only valid until the next
// Spawn or Advance.
func (p *BulletPool) Active() []*Bullet { return p.active }

// Views captures the bullets in flight for rendering.
func (p *BulletPool) Views() []BulletView {
	out := make([]BulletView, len(p.active))
	for i, b := range p.active {
		out[i] = BulletView{X: b.X, Y: b.Y, Rotation: b.Rotation}
	}
	return out
}
