package domain

import "math/rand"

// Field and kinematics constants. The field matches the 800x600 canvas the
// clients render; paddles sit 50px from their goal line.
const (
	FieldWidth   = 800.0
	FieldHeight  = 600.0
	PaddleWidth  = 10.0
	PaddleHeight = 100.0
	PaddleSpeed  = 400.0 // px/s
	BallSize     = 10.0
	BallSpeed    = 300.0 // px/s serve speed
	MaxBallSpeed = 600.0

	LeftPaddleX  = 50.0
	RightPaddleX = FieldWidth - 60.0

	// spawnCountdownSteps counts 4..1 at spawnStepSeconds apiece before the
	// ball goes live after a score (or at game start).
	spawnCountdownSteps = 4
	spawnStepSeconds    = 0.5

	// spawnSlack absorbs the float error of summing fixed tick deltas, which
	// lands just below a step boundary otherwise.
	spawnSlack = 1e-9
)

// Game is the authoritative simulation for one match. It is not safe for
// concurrent use; the owning room's tick loop is its only caller.
type Game struct {
	State GameState

	Ball    Position
	ballVX  float64
	ballVY  float64
	ballSpd float64

	Paddle1Y float64
	Paddle2Y float64
	dir1     Direction
	dir2     Direction

	Score      Score
	ScoreToWin int
	WinnerSeat int // 0 until a side wins

	// SpawnCountdown is 4..1 while waiting for the ball to go live, 0 once
	// the ball is in play. Exposed verbatim on the state frame.
	SpawnCountdown int
	LastScoreTime  int64 // unix milliseconds of the last score (or start)
	spawnElapsed   float64

	// serveToward is the seat the next serve travels toward: the side that
	// conceded the last point serves the advantage away.
	serveToward int

	rng *rand.Rand
}

// NewGame builds an idle simulation. rng drives serve angles and may be nil
// for a default source.
func NewGame(scoreToWin int, rng *rand.Rand) *Game {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	g := &Game{
		State:       GameStateStart,
		ScoreToWin:  scoreToWin,
		serveToward: 1,
		rng:         rng,
	}
	g.resetPositions()
	return g
}

// Start begins play, with the opening spawn countdown running. Starting an
// already running or finished game is a no-op.
func (g *Game) Start(nowMillis int64) {
	if g.State == GameStatePlaying || g.State == GameStateOver {
		return
	}
	g.State = GameStatePlaying
	g.beginSpawn(nowMillis)
}

// Pause freezes the simulation until Resume.
func (g *Game) Pause() {
	if g.State == GameStatePlaying {
		g.State = GameStatePaused
	}
}

// Resume continues a paused game.
func (g *Game) Resume() {
	if g.State == GameStatePaused {
		g.State = GameStatePlaying
	}
}

// Reset returns the game to its initial idle state with a clean score.
func (g *Game) Reset() {
	g.State = GameStateStart
	g.Score = Score{}
	g.WinnerSeat = 0
	g.serveToward = 1
	g.dir1 = DirectionStop
	g.dir2 = DirectionStop
	g.resetPositions()
}

// HandleInput applies a movement command to the given seat's paddle.
func (g *Game) HandleInput(seat int, dir Direction) error {
	if !ValidDirection(dir) {
		return ErrInvalidDirection
	}
	switch seat {
	case 1:
		g.dir1 = dir
	case 2:
		g.dir2 = dir
	default:
		return ErrUnknownSeat
	}
	return nil
}

// Update advances the simulation by dt seconds. nowMillis stamps score
// events. A no-op unless the game is playing.
func (g *Game) Update(dt float64, nowMillis int64) {
	if g.State != GameStatePlaying {
		return
	}

	g.Paddle1Y = movePaddle(g.Paddle1Y, g.dir1, dt)
	g.Paddle2Y = movePaddle(g.Paddle2Y, g.dir2, dt)

	if g.SpawnCountdown > 0 {
		g.spawnElapsed += dt
		step := spawnCountdownSteps - int((g.spawnElapsed+spawnSlack)/spawnStepSeconds)
		if step <= 0 {
			g.SpawnCountdown = 0
			g.serve()
		} else {
			g.SpawnCountdown = step
		}
		return
	}

	g.Ball.X += g.ballVX * dt
	g.Ball.Y += g.ballVY * dt

	// Wall bounces.
	if g.Ball.Y <= BallSize/2 {
		g.Ball.Y = BallSize / 2
		g.ballVY = -g.ballVY
	} else if g.Ball.Y >= FieldHeight-BallSize/2 {
		g.Ball.Y = FieldHeight - BallSize/2
		g.ballVY = -g.ballVY
	}

	// Paddle collisions.
	if g.ballVX < 0 && g.Ball.X-BallSize/2 <= LeftPaddleX+PaddleWidth &&
		g.Ball.X-BallSize/2 >= LeftPaddleX &&
		g.Ball.Y >= g.Paddle1Y && g.Ball.Y <= g.Paddle1Y+PaddleHeight {
		g.bounceOffPaddle(g.Paddle1Y)
		g.Ball.X = LeftPaddleX + PaddleWidth + BallSize/2
	} else if g.ballVX > 0 && g.Ball.X+BallSize/2 >= RightPaddleX &&
		g.Ball.X+BallSize/2 <= RightPaddleX+PaddleWidth &&
		g.Ball.Y >= g.Paddle2Y && g.Ball.Y <= g.Paddle2Y+PaddleHeight {
		g.bounceOffPaddle(g.Paddle2Y)
		g.Ball.X = RightPaddleX - BallSize/2
	}

	// Goal crossings.
	if g.Ball.X < 0 {
		g.scorePoint(2, nowMillis)
	} else if g.Ball.X > FieldWidth {
		g.scorePoint(1, nowMillis)
	}
}

// HasWinner reports whether a side reached the winning score.
func (g *Game) HasWinner() bool {
	return g.WinnerSeat != 0
}

// ForceWinner ends the game in favor of the given seat, regardless of score.
// Used for technical outcomes such as a forfeit.
func (g *Game) ForceWinner(seat int) {
	g.WinnerSeat = seat
	g.State = GameStateOver
}

// Frame captures the current authoritative snapshot for broadcast.
func (g *Game) Frame() StateFrame {
	return StateFrame{
		Type:                  "gameState",
		BallPos:               g.Ball,
		Player1PaddlePos:      PaddlePosition{Y: g.Paddle1Y},
		Player2PaddlePos:      PaddlePosition{Y: g.Paddle2Y},
		Score:                 g.Score,
		GameState:             g.State,
		IsWaitingForBallSpawn: g.SpawnCountdown,
		LastScoreTime:         g.LastScoreTime,
		HasWinner:             g.WinnerSeat != 0,
		WinnerSeat:            g.WinnerSeat,
	}
}

func (g *Game) scorePoint(seat int, nowMillis int64) {
	if seat == 1 {
		g.Score.Player1++
		g.serveToward = 2
	} else {
		g.Score.Player2++
		g.serveToward = 1
	}

	if g.Score.Player1 >= g.ScoreToWin {
		g.WinnerSeat = 1
		g.State = GameStateOver
		return
	}
	if g.Score.Player2 >= g.ScoreToWin {
		g.WinnerSeat = 2
		g.State = GameStateOver
		return
	}

	g.resetBall()
	g.beginSpawn(nowMillis)
}

func (g *Game) beginSpawn(nowMillis int64) {
	g.SpawnCountdown = spawnCountdownSteps
	g.spawnElapsed = 0
	g.LastScoreTime = nowMillis
}

func (g *Game) serve() {
	g.ballSpd = BallSpeed
	vx := BallSpeed * 0.85
	if g.serveToward == 1 {
		vx = -vx
	}
	g.ballVX = vx
	// Vertical component in [-0.5, 0.5] of serve speed.
	g.ballVY = (g.rng.Float64() - 0.5) * BallSpeed
}

// bounceOffPaddle reverses the ball's horizontal travel, speeding it up and
// deflecting it by how far from the paddle center it struck.
func (g *Game) bounceOffPaddle(paddleY float64) {
	offset := (g.Ball.Y - (paddleY + PaddleHeight/2)) / (PaddleHeight / 2)
	g.ballSpd *= 1.05
	if g.ballSpd > MaxBallSpeed {
		g.ballSpd = MaxBallSpeed
	}
	if g.ballVX < 0 {
		g.ballVX = g.ballSpd * 0.85
	} else {
		g.ballVX = -g.ballSpd * 0.85
	}
	g.ballVY = g.ballSpd * 0.6 * offset
}

func (g *Game) resetBall() {
	g.Ball = Position{X: FieldWidth / 2, Y: FieldHeight / 2}
	g.ballVX = 0
	g.ballVY = 0
}

func (g *Game) resetPositions() {
	g.resetBall()
	g.Paddle1Y = (FieldHeight - PaddleHeight) / 2
	g.Paddle2Y = (FieldHeight - PaddleHeight) / 2
}

func movePaddle(y float64, dir Direction, dt float64) float64 {
	switch dir {
	case DirectionUp:
		y -= PaddleSpeed * dt
	case DirectionDown:
		y += PaddleSpeed * dt
	}
	if y < 0 {
		return 0
	}
	if y > FieldHeight-PaddleHeight {
		return FieldHeight - PaddleHeight
	}
	return y
}
