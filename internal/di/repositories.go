package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/insights"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/news"
	"github.com/ANGELCJR/stock-vision-sub000/internal/modules/portfolio"
)

// InitializeRepositories creates the stores for the selected backend
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container.Memory != nil {
		container.PortfolioStore = container.Memory.Portfolios()
		container.HoldingStore = container.Memory.Holdings()
		container.NewsStore = container.Memory.News()
		container.InsightStore = container.Memory.Insights()
		return nil
	}
	if container.DB == nil {
		return fmt.Errorf("no storage initialized")
	}

	conn := container.DB.Conn()
	container.PortfolioStore = portfolio.NewPortfolioRepository(conn, log)
	container.HoldingStore = portfolio.NewHoldingRepository(conn, log)
	container.NewsStore = news.NewRepository(conn, log)
	container.InsightStore = insights.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
