package segment

type PlayerState string

const (
	PlayerIdle     PlayerState = "idle"
	PlayerPlaying  PlayerState = "playing"
	PlayerPaused   PlayerState = "paused"
	PlayerFinished PlayerState = "finished"
)

// Player plays a List clip after clip. It is driven by the clip end event:
// Ended advances by one and stops after the last clip.
type Player struct {
	list  List
	index int
	state PlayerState
}

func NewPlayer(l List) *Player {
	return &Player{list: append(List(nil), l...), state: PlayerIdle}
}

func (p *Player) State() PlayerState { return p.state }
func (p *Player) Index() int         { return p.index }

// Current returns the clip under the play head.
func (p *Player) Current() (Segment, bool) {
	if p.index < 0 || p.index >= len(p.list) {
		return Segment{}, false
	}
	return p.list[p.index], true
}

func (p *Player) Play() {
	if len(p.list) == 0 {
		p.state = PlayerFinished
		return
	}
	if p.state == PlayerFinished {
		p.index = 0
	}
	p.state = PlayerPlaying
}

func (p *Player) Pause() {
	if p.state == PlayerPlaying {
		p.state = PlayerPaused
	}
}

// Ended handles the natural end of the current clip and reports whether
// another clip started.
func (p *Player) Ended() bool {
	if p.state != PlayerPlaying {
		return false
	}
	if p.index+1 >= len(p.list) {
		p.state = PlayerFinished
		return false
	}
	p.index++
	return true
}

func (p *Player) Seek(i int) error {
	if err := p.list.check(i); err != nil {
		return err
	}
	p.index = i
	if p.state == PlayerFinished {
		p.state = PlayerPaused
	}
	return nil
}

// Replace swaps in an edited list, keeping the play head on the same clip id
// when it survived the edit.
func (p *Player) Replace(l List) {
	cur, ok := p.Current()
	p.list = append(List(nil), l...)
	p.index = 0
	if ok {
		for i, s := range p.list {
			if s.ID == cur.ID {
				p.index = i
				break
			}
		}
	}
	if len(p.list) == 0 {
		p.state = PlayerIdle
	}
}
