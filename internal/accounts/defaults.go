package accounts

import "github.com/atlas-finance/wisebook/internal/model"

// SuspenseAccount is the SYSCOHADA "compte d'attente" used for synthesized balancing lines.
const SuspenseAccount = "471"

// DefaultChart returns the default chart of accounts for an accounting system.
func DefaultChart(system string) []model.Account {
	switch system {
	case "syscohada_minimal":
		return minimalChart()
	default:
		return syscohadaChart()
	}
}

func acct(code, label string, normal model.NormalSide) model.Account {
	return model.Account{Code: code, Label: label, Class: model.ClassOf(code), Normal: normal}
}

// syscohadaChart is the revised SYSCOHADA chart at three digits, trimmed to the
// accounts a small trading company posts to.
func syscohadaChart() []model.Account {
	d, c, e := model.NormalDebit, model.NormalCredit, model.NormalEither
	return []model.Account{
		// Classe 1: ressources durables
		acct("101", "Capital social", c),
		acct("106", "Réserves", c),
		acct("121", "Report à nouveau créditeur", c),
		acct("129", "Report à nouveau débiteur", d),
		acct("131", "Résultat net : bénéfice", c),
		acct("139", "Résultat net : perte", d),
		acct("162", "Emprunts et dettes auprès des établissements de crédit", c),
		// Classe 2: actif immobilisé
		acct("211", "Frais de développement", d),
		acct("213", "Logiciels et sites internet", d),
		acct("231", "Bâtiments industriels, agricoles, administratifs et commerciaux", d),
		acct("241", "Matériel et outillage industriel et commercial", d),
		acct("244", "Matériel et mobilier", d),
		acct("245", "Matériel de transport", d),
		acct("281", "Amortissements des immobilisations incorporelles", c),
		acct("284", "Amortissements du matériel", c),
		// Classe 3: stocks
		acct("311", "Marchandises", d),
		acct("321", "Matières premières", d),
		// Classe 4: tiers
		acct("401", "Fournisseurs, dettes en compte", c),
		acct("408", "Fournisseurs, factures non parvenues", c),
		acct("409", "Fournisseurs débiteurs", d),
		acct("411", "Clients", d),
		acct("418", "Clients, produits à recevoir", d),
		acct("419", "Clients créditeurs", c),
		acct("421", "Personnel, avances et acomptes", d),
		acct("422", "Personnel, rémunérations dues", c),
		acct("431", "Sécurité sociale", c),
		acct("441", "État, impôt sur les bénéfices", c),
		acct("443", "État, TVA facturée", c),
		acct("445", "État, TVA récupérable", d),
		acct("447", "État, impôts retenus à la source", c),
		acct("471", "Compte d'attente", e),
		acct("476", "Charges constatées d'avance", d),
		acct("477", "Produits constatés d'avance", c),
		// Classe 5: trésorerie
		acct("521", "Banques locales", e),
		acct("531", "Chèques postaux", e),
		acct("571", "Caisse siège social", d),
		acct("585", "Virements de fonds", e),
		// Classe 6: charges des activités ordinaires
		acct("601", "Achats de marchandises", d),
		acct("602", "Achats de matières premières", d),
		acct("604", "Achats stockés de matières et fournitures consommables", d),
		acct("605", "Autres achats", d),
		acct("611", "Transports sur achats", d),
		acct("622", "Locations et charges locatives", d),
		acct("624", "Entretien, réparations et maintenance", d),
		acct("625", "Primes d'assurance", d),
		acct("627", "Publicité, publications, relations publiques", d),
		acct("628", "Frais de télécommunications", d),
		acct("631", "Frais bancaires", d),
		acct("632", "Rémunérations d'intermédiaires et de conseils", d),
		acct("641", "Impôts et taxes directs", d),
		acct("661", "Rémunérations directes versées au personnel national", d),
		acct("664", "Charges sociales", d),
		acct("671", "Intérêts des emprunts", d),
		acct("681", "Dotations aux amortissements d'exploitation", d),
		// Classe 7: produits des activités ordinaires
		acct("701", "Ventes de marchandises", c),
		acct("702", "Ventes de produits finis", c),
		acct("706", "Services vendus", c),
		acct("707", "Produits accessoires", c),
		acct("771", "Intérêts de prêts", c),
		acct("781", "Transferts de charges d'exploitation", c),
		// Classe 8: autres charges et produits
		acct("811", "Valeurs comptables des cessions d'immobilisations", d),
		acct("821", "Produits des cessions d'immobilisations", c),
		acct("891", "Impôts sur les bénéfices de l'exercice", d),
		// Classe 9: comptabilité analytique
		acct("901", "Comptes réfléchis", e),
	}
}

func minimalChart() []model.Account {
	d, c, e := model.NormalDebit, model.NormalCredit, model.NormalEither
	return []model.Account{
		acct("101", "Capital social", c),
		acct("401", "Fournisseurs, dettes en compte", c),
		acct("411", "Clients", d),
		acct("471", "Compte d'attente", e),
		acct("521", "Banques locales", e),
		acct("571", "Caisse siège social", d),
		acct("601", "Achats de marchandises", d),
		acct("701", "Ventes de marchandises", c),
	}
}
