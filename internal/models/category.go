package models

type CategoryID string

const (
	CategoryAddedByUser CategoryID = "addedByUser"
	CategoryMyList      CategoryID = "myList"
	CategoryTrending    CategoryID = "trending"
	CategoryNewReleases CategoryID = "newReleases"
	CategoryOriginals   CategoryID = "originals"
	CategoryTopRated    CategoryID = "topRated"
	CategoryAll         CategoryID = "all"
)

type Category struct {
	ID    CategoryID `json:"id"`
	Title string     `json:"title"`
}

// Categories is the home feed row order.
var Categories = []Category{
	{ID: CategoryAddedByUser, Title: "🍿 Enviados pela Comunidade"},
	{ID: CategoryMyList, Title: "Minha Lista"},
	{ID: CategoryTrending, Title: "Em Alta"},
	{ID: CategoryNewReleases, Title: "Lançamentos"},
	{ID: CategoryOriginals, Title: "Originais NETBONS"},
	{ID: CategoryTopRated, Title: "Melhores Avaliados"},
}

// Row is one rendered home feed row.
type Row struct {
	Category
	Movies []Movie `json:"movies"`
}
